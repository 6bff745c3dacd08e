package part_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	partDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/part"
	"github.com/frahmantamala/plant-maintenance/internal/part"
	partPostgres "github.com/frahmantamala/plant-maintenance/internal/part/postgres"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Part Handler Integration", func() {
	var (
		db     *gorm.DB
		router chi.Router
		actor  *auth.Principal
	)

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&partDatamodel.Part{})).To(Succeed())

		service := part.NewService(partPostgres.NewPartRepository(db), nil, 10, slogger)
		handler := part.NewHandler(service)

		actor = &auth.Principal{ID: "m1", Role: auth.RoleManager}
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), actor)))
			})
		})
		router.Get("/parts", handler.ListParts)
		router.Post("/parts", handler.CreatePart)
		router.Get("/parts/{id}", handler.GetPart)
		router.Patch("/parts/{id}", handler.UpdatePart)
		router.Delete("/parts/{id}", handler.DeletePart)
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should create, patch and fetch a part", func() {
		w := do(http.MethodPost, "/parts", `{"name":"Bearing","part_number":"BR-200","stock":50}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created part.Part
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

		w = do(http.MethodPatch, "/parts/"+created.ID, `{"stock":7}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(http.MethodGet, "/parts/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var fetched part.Part
		Expect(json.NewDecoder(w.Body).Decode(&fetched)).To(Succeed())
		Expect(fetched.Stock).To(Equal(7))
		Expect(fetched.LowStock).To(BeTrue())
		Expect(fetched.PartNumber).To(Equal("BR-200"))
	})

	It("should answer 400 DEPRECATED_FIELD for inStock writes", func() {
		w := do(http.MethodPost, "/parts", `{"name":"Bearing","inStock":5}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeDeprecatedField)))
	})

	It("should answer 404 for unknown parts", func() {
		Expect(do(http.MethodGet, "/parts/missing", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodDelete, "/parts/missing", "").Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 403 when an employee writes", func() {
		actor = &auth.Principal{ID: "e1", Role: auth.RoleEmployee, Permissions: map[string]bool{auth.PermViewParts: true}}

		Expect(do(http.MethodPost, "/parts", `{"name":"Bearing"}`).Code).To(Equal(http.StatusForbidden))
		Expect(do(http.MethodGet, "/parts", "").Code).To(Equal(http.StatusOK))
	})
})
