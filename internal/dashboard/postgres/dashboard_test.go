package postgres

import (
	"context"
	"testing"

	"github.com/frahmantamala/plant-maintenance/internal/dashboard"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDashboardRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dashboard Repository Suite")
}

const schema = `
CREATE TABLE employees (id TEXT PRIMARY KEY, role TEXT NOT NULL, status TEXT NOT NULL);
CREATE TABLE machines (id TEXT PRIMARY KEY, status TEXT NOT NULL);
CREATE TABLE parts (id TEXT PRIMARY KEY, name TEXT NOT NULL, stock INTEGER NOT NULL DEFAULT 0);`

var _ = Describe("Dashboard Repository", func() {
	var (
		db   *sqlx.DB
		repo dashboard.RepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = sqlx.Open("sqlite3", ":memory:")
		Expect(err).ToNot(HaveOccurred())
		db.SetMaxOpenConns(1)

		db.MustExec(schema)
		db.MustExec(`INSERT INTO employees (id, role, status) VALUES
			('a', 'Admin', 'Active'), ('m', 'Manager', 'Active'),
			('e1', 'Employee', 'Active'), ('e2', 'Employee', 'OnLeave'), ('e3', 'Employee', 'Terminated')`)
		db.MustExec(`INSERT INTO machines (id, status) VALUES
			('M001', 'Operational'), ('M002', 'Operational'), ('M003', 'UnderMaintenance')`)
		db.MustExec(`INSERT INTO parts (id, name, stock) VALUES
			('P001', 'Conveyor belt', 250), ('P002', 'Bearing', 15), ('P003', 'Seal kit', 0), ('P004', 'Filter', 20)`)

		repo = NewRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("should count active employees by role", func() {
		counts, err := repo.EmployeesByRole(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts).To(Equal(map[string]int{"Admin": 1, "Manager": 1, "Employee": 2}))
	})

	It("should count machines by status", func() {
		counts, err := repo.MachinesByStatus(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts).To(Equal(map[string]int{"Operational": 2, "UnderMaintenance": 1}))
	})

	It("should count parts", func() {
		n, err := repo.PartCount(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(4))
	})

	It("should list parts at or below the threshold, emptiest first", func() {
		parts, err := repo.LowStockParts(ctx, 20)
		Expect(err).ToNot(HaveOccurred())
		Expect(parts).To(Equal([]dashboard.LowStockPart{
			{ID: "P003", Name: "Seal kit", Stock: 0},
			{ID: "P002", Name: "Bearing", Stock: 15},
			{ID: "P004", Name: "Filter", Stock: 20},
		}))
	})
})
