package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Authorization resolver", func() {
	var (
		admin    *Principal
		manager  *Principal
		employee *Principal
	)

	BeforeEach(func() {
		admin = &Principal{ID: "a", Role: RoleAdmin, Permissions: map[string]bool{}}
		manager = &Principal{ID: "m", Role: RoleManager, Permissions: map[string]bool{}}
		employee = &Principal{ID: "e", Role: RoleEmployee, Permissions: map[string]bool{PermViewTasks: true}}
	})

	Describe("HasPermission", func() {
		It("should grant every permission to Admin", func() {
			for name := range AllPermissions {
				Expect(HasPermission(admin, name)).To(BeTrue(), name)
			}
		})

		It("should honour explicit grants only", func() {
			Expect(HasPermission(employee, PermViewTasks)).To(BeTrue())
			Expect(HasPermission(employee, PermManageParts)).To(BeFalse())
		})

		It("should treat a false entry as not granted", func() {
			employee.Permissions[PermViewParts] = false
			Expect(HasPermission(employee, PermViewParts)).To(BeFalse())
		})

		It("should deny a nil principal", func() {
			Expect(HasPermission(nil, PermViewTasks)).To(BeFalse())
		})
	})

	Describe("CanManage", func() {
		DescribeTable("role allow-lists",
			func(role Role, resource Resource, expected bool) {
				p := &Principal{ID: "x", Role: role, Permissions: map[string]bool{}}
				Expect(CanManage(p, resource)).To(Equal(expected))
			},
			Entry("admin machines", RoleAdmin, ResourceMachines, true),
			Entry("admin users", RoleAdmin, ResourceUsers, true),
			Entry("manager employees", RoleManager, ResourceEmployees, true),
			Entry("manager parts", RoleManager, ResourceParts, true),
			Entry("manager tasks", RoleManager, ResourceTasks, true),
			Entry("manager reports", RoleManager, ResourceReports, true),
			Entry("manager machines", RoleManager, ResourceMachines, false),
			Entry("manager users", RoleManager, ResourceUsers, false),
			Entry("employee tasks", RoleEmployee, ResourceTasks, false),
			Entry("employee parts", RoleEmployee, ResourceParts, false),
			Entry("unknown role", Role("Contractor"), ResourceTasks, false),
		)

		It("should let an explicit permission lift an employee", func() {
			employee.Permissions[PermManageMachines] = true
			Expect(CanManageMachines(employee)).To(BeTrue())
		})

		It("should deny an unknown resource", func() {
			Expect(CanManage(admin, Resource("reactors"))).To(BeFalse())
		})
	})

	Describe("MeetsRole", func() {
		It("should order Employee < Manager < Admin", func() {
			Expect(MeetsRole(employee, RoleManager)).To(BeFalse())
			Expect(MeetsRole(manager, RoleManager)).To(BeTrue())
			Expect(MeetsRole(admin, RoleManager)).To(BeTrue())
			Expect(MeetsRole(manager, RoleAdmin)).To(BeFalse())
			Expect(MeetsRole(employee, RoleEmployee)).To(BeTrue())
		})

		It("should reject unknown roles and nil principals", func() {
			Expect(MeetsRole(&Principal{Role: "Guest"}, RoleEmployee)).To(BeFalse())
			Expect(MeetsRole(nil, RoleEmployee)).To(BeFalse())
		})
	})

	Describe("Capabilities", func() {
		It("should list resolved flags for the principal", func() {
			caps := Capabilities(manager)
			Expect(caps).To(HaveKeyWithValue("can_manage_tasks", true))
			Expect(caps).To(HaveKeyWithValue("can_manage_machines", false))
		})
	})
})

var _ = Describe("RBACAuthorization", func() {
	var (
		rbac *RBACAuthorization
		ok   http.Handler
	)

	BeforeEach(func() {
		rbac = NewRBACAuthorization(NewPermissionChecker(), slog.New(slog.NewTextHandler(io.Discard, nil)))
		ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	serve := func(h http.Handler, p *Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p != nil {
			req = req.WithContext(WithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	It("should answer 401 without a principal", func() {
		rec := serve(rbac.RequireRole(RoleEmployee)(ok), nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reject an Employee on a Manager route with AUTHORIZATION_DENIED", func() {
		rec := serve(rbac.RequireRole(RoleManager)(ok), &Principal{ID: "e", Role: RoleEmployee})

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("AUTHORIZATION_DENIED"))
	})

	It("should accept Manager and Admin on a Manager route", func() {
		Expect(serve(rbac.RequireRole(RoleManager)(ok), &Principal{Role: RoleManager}).Code).To(Equal(http.StatusOK))
		Expect(serve(rbac.RequireRole(RoleManager)(ok), &Principal{Role: RoleAdmin}).Code).To(Equal(http.StatusOK))
	})

	It("should admit parts viewers by permission or rank", func() {
		p := &Principal{Role: RoleEmployee, Permissions: map[string]bool{PermViewParts: true}}
		Expect(serve(rbac.RequirePartsView()(ok), p).Code).To(Equal(http.StatusOK))
		Expect(serve(rbac.RequirePartsView()(ok), &Principal{Role: RoleEmployee}).Code).To(Equal(http.StatusForbidden))
		Expect(serve(rbac.RequirePartsView()(ok), &Principal{Role: RoleManager}).Code).To(Equal(http.StatusOK))
	})

	It("should gate on capabilities", func() {
		Expect(serve(rbac.RequireCapability(ResourceMachines)(ok), &Principal{Role: RoleManager}).Code).To(Equal(http.StatusForbidden))
		Expect(serve(rbac.RequireCapability(ResourceParts)(ok), &Principal{Role: RoleManager}).Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("CanViewParts", func() {
	It("should need view_parts for employees", func() {
		Expect(CanViewParts(&Principal{Role: RoleEmployee})).To(BeFalse())
		Expect(CanViewParts(&Principal{Role: RoleEmployee, Permissions: map[string]bool{PermViewParts: true}})).To(BeTrue())
		Expect(CanViewParts(&Principal{Role: RoleManager})).To(BeTrue())
		Expect(CanViewParts(nil)).To(BeFalse())
	})
})
