package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/plant-maintenance/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("Auth Handler", func() {
	var (
		handler  *Handler
		service  *Service
		mockRepo *mockAuthRepository
	)

	BeforeEach(func() {
		mockRepo = newMockAuthRepository()
		tokenGen := NewJWTTokenGenerator("handler-access-secret-0123456789abcd", "handler-refresh-secret-0123456789abc", 0, 0)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
		handler = NewHandler(service)
	})

	login := func(email, password string) *httptest.ResponseRecorder {
		body := `{"email":"` + email + `","password":"` + password + `"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	Describe("Login", func() {
		It("should return 200 with the user and tokens", func() {
			rec := login("employee@example.com", "correct_password")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var result SignInResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Principal.Email).To(Equal("employee@example.com"))
			Expect(result.AccessToken).ToNot(BeEmpty())
		})

		It("should return the AuthError code for a wrong password", func() {
			rec := login("employee@example.com", "nope")

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeAuthWrongPassword)))
		})

		It("should return 400 for malformed JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
			rec := httptest.NewRecorder()
			handler.Login(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("AuthMiddleware and Me", func() {
		var protected http.Handler

		BeforeEach(func() {
			protected = handler.AuthMiddleware(http.HandlerFunc(handler.Me))
		})

		tokenFor := func(email string) string {
			var result SignInResult
			rec := login(email, "correct_password")
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			return result.AccessToken
		}

		It("should return the profile with capabilities", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor("admin@example.com"))
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["role"]).To(Equal("Admin"))
			Expect(body["capabilities"]).To(HaveKeyWithValue("can_manage_machines", true))
		})

		It("should reject requests without a token", func() {
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should fail closed when the profile disappears after sign in", func() {
			token := tokenFor("employee@example.com")
			delete(mockRepo.profiles, "emp-1")

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeProfileNotFound)))
			Expect(rec.Body.String()).ToNot(ContainSubstring("Admin"))
		})

		It("should answer 500 when the profile store is down", func() {
			token := tokenFor("employee@example.com")
			mockRepo.setError(errors.New("connection refused"))

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeStoreFailed)))
			Expect(rec.Body.String()).ToNot(ContainSubstring(string(internal.ErrCodeProfileNotFound)))
		})

		It("should accept the token from the query string", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/me?access_token="+tokenFor("employee@example.com"), nil)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Logout", func() {
		It("should revoke the token", func() {
			var result SignInResult
			rec := login("employee@example.com", "correct_password")
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.Header.Set("Authorization", "Bearer "+result.AccessToken)
			out := httptest.NewRecorder()
			handler.Logout(out, req)
			Expect(out.Code).To(Equal(http.StatusNoContent))

			me := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			me.Header.Set("Authorization", "Bearer "+result.AccessToken)
			meRec := httptest.NewRecorder()
			handler.AuthMiddleware(http.HandlerFunc(handler.Me)).ServeHTTP(meRec, me)
			Expect(meRec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
