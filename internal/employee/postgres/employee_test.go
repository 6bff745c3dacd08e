package postgres

import (
	"context"
	"testing"

	employeeDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/employee"
	"github.com/frahmantamala/plant-maintenance/internal/employee"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestEmployeeRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EmployeeRepository Suite")
}

var _ = Describe("EmployeeRepository", func() {
	var (
		db   *gorm.DB
		repo employee.RepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&employeeDatamodel.Employee{}, &employeeDatamodel.EmployeePermission{})).To(Succeed())

		repo = NewEmployeeRepository(db)
		ctx = context.Background()

		Expect(repo.Create(ctx, &employeeDatamodel.Employee{
			ID: "emp-1", FirstName: "Jane", LastName: "Employee", Email: "employee@taskmgmt.com",
			PasswordHash: "x", Role: "Employee", Status: "Active", Department: "Production",
			Skills: []string{"welding"},
			Permissions: []employeeDatamodel.EmployeePermission{
				{EmployeeID: "emp-1", PermissionName: "view_tasks", Granted: true},
				{EmployeeID: "emp-1", PermissionName: "view_parts", Granted: false},
			},
		})).To(Succeed())
		Expect(repo.Create(ctx, &employeeDatamodel.Employee{
			ID: "mgr-1", FirstName: "John", LastName: "Manager", Email: "manager@taskmgmt.com",
			PasswordHash: "x", Role: "Manager", Status: "Active", Department: "Operations",
		})).To(Succeed())
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("should load permissions and skills with the employee", func() {
		e, err := repo.GetByID(ctx, "emp-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Skills).To(Equal([]string{"welding"}))
		Expect(e.Permissions).To(HaveLen(2))

		domain := employee.FromDataModel(e)
		Expect(domain.Permissions).To(Equal(map[string]bool{"view_tasks": true, "view_parts": false}))
	})

	It("should return ErrEmployeeNotFound for unknown ids and emails", func() {
		_, err := repo.GetByID(ctx, "ghost")
		Expect(err).To(Equal(employee.ErrEmployeeNotFound))

		_, err = repo.GetByEmail(ctx, "ghost@plant.io")
		Expect(err).To(Equal(employee.ErrEmployeeNotFound))
	})

	It("should match emails case-insensitively", func() {
		e, err := repo.GetByEmail(ctx, "Manager@TaskMgmt.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.ID).To(Equal("mgr-1"))
	})

	It("should filter by role and search", func() {
		employees, err := repo.List(ctx, employee.ListFilter{Role: "Manager"})
		Expect(err).NotTo(HaveOccurred())
		Expect(employees).To(HaveLen(1))

		employees, err = repo.List(ctx, employee.ListFilter{Search: "jane"})
		Expect(err).NotTo(HaveOccurred())
		Expect(employees).To(HaveLen(1))
		Expect(employees[0].ID).To(Equal("emp-1"))
	})

	It("should resolve several ids at once", func() {
		employees, err := repo.GetByIDs(ctx, []string{"emp-1", "mgr-1", "ghost"})
		Expect(err).NotTo(HaveOccurred())
		Expect(employees).To(HaveLen(2))
	})

	Describe("Save", func() {
		It("should keep permissions when none are given", func() {
			e, err := repo.GetByID(ctx, "emp-1")
			Expect(err).NotTo(HaveOccurred())
			e.Phone = "555-0101"
			e.Permissions = nil
			Expect(repo.Save(ctx, e)).To(Succeed())

			reloaded, err := repo.GetByID(ctx, "emp-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Phone).To(Equal("555-0101"))
			Expect(reloaded.Permissions).To(HaveLen(2))
		})

		It("should replace permissions when given", func() {
			e, err := repo.GetByID(ctx, "emp-1")
			Expect(err).NotTo(HaveOccurred())
			e.Permissions = []employeeDatamodel.EmployeePermission{
				{EmployeeID: "emp-1", PermissionName: "manage_parts", Granted: true},
			}
			Expect(repo.Save(ctx, e)).To(Succeed())

			reloaded, err := repo.GetByID(ctx, "emp-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Permissions).To(HaveLen(1))
			Expect(reloaded.Permissions[0].PermissionName).To(Equal("manage_parts"))
		})
	})

	It("should update status and report unknown ids", func() {
		Expect(repo.UpdateStatus(ctx, "emp-1", "Terminated")).To(Succeed())
		e, err := repo.GetByID(ctx, "emp-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Status).To(Equal("Terminated"))

		Expect(repo.UpdateStatus(ctx, "ghost", "Terminated")).To(Equal(employee.ErrEmployeeNotFound))
	})
})
