package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Module Suite")
}

// Mock repository for testing
type mockAuthRepository struct {
	credentials   map[string]*Credentials // email -> credentials
	profiles      map[string]*Principal   // id -> profile
	returnError   bool
	errorToReturn error
}

func newMockAuthRepository() *mockAuthRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockAuthRepository{
		credentials: map[string]*Credentials{
			"employee@example.com": {UserID: "emp-1", Email: "employee@example.com", PasswordHash: string(hashedPassword), Status: "Active"},
			"admin@example.com":    {UserID: "adm-1", Email: "admin@example.com", PasswordHash: string(hashedPassword), Status: "Active"},
			"orphan@example.com":   {UserID: "orphan-1", Email: "orphan@example.com", PasswordHash: string(hashedPassword), Status: "Active"},
			"gone@example.com":     {UserID: "gone-1", Email: "gone@example.com", PasswordHash: string(hashedPassword), Status: "Terminated"},
		},
		profiles: map[string]*Principal{
			"emp-1": {ID: "emp-1", FullName: "Jane Employee", Email: "employee@example.com", Role: RoleEmployee, Status: "Active",
				Permissions: map[string]bool{PermViewTasks: true}},
			"adm-1": {ID: "adm-1", FullName: "System Administrator", Email: "admin@example.com", Role: RoleAdmin, Status: "Active"},
		},
	}
}

func (m *mockAuthRepository) GetCredentials(ctx context.Context, email string) (*Credentials, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if c, ok := m.credentials[email]; ok {
		return c, nil
	}
	return nil, ErrCredentialsNotFound
}

func (m *mockAuthRepository) GetProfile(ctx context.Context, userID string) (*Principal, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrProfileNotFound
}

func (m *mockAuthRepository) setError(err error) {
	m.returnError = true
	m.errorToReturn = err
}

var _ = Describe("AuthService", func() {
	var (
		service       *Service
		mockRepo      *mockAuthRepository
		tokenGen      *JWTTokenGenerator
		ctx           context.Context
		accessSecret  string        = "test-access-secret-0123456789abcdef"
		refreshSecret string        = "test-refresh-secret-0123456789abcdef"
		accessTTL     time.Duration = 15 * time.Minute
		refreshTTL    time.Duration = 24 * time.Hour
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockAuthRepository()
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, refreshTTL)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("SignIn", func() {
		Context("when credentials are valid", func() {
			It("should return the profile with access and refresh tokens", func() {
				// Given
				dto := LoginDTO{Email: "employee@example.com", Password: "correct_password"}

				// When
				result, err := service.SignIn(ctx, dto)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(result.Principal.ID).To(Equal("emp-1"))
				Expect(result.Principal.Role).To(Equal(RoleEmployee))
				Expect(result.AccessToken).ToNot(BeEmpty())
				Expect(result.RefreshToken).ToNot(BeEmpty())
				Expect(result.AccessToken).ToNot(Equal(result.RefreshToken))
			})

			It("should normalise the email before lookup", func() {
				result, err := service.SignIn(ctx, LoginDTO{Email: "  Admin@Example.com ", Password: "correct_password"})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Principal.Role).To(Equal(RoleAdmin))
			})

			It("should generate valid JWT access tokens", func() {
				result, err := service.SignIn(ctx, LoginDTO{Email: "admin@example.com", Password: "correct_password"})
				Expect(err).ToNot(HaveOccurred())

				claims, err := service.ValidateAccessToken(result.AccessToken)
				Expect(err).ToNot(HaveOccurred())
				Expect(claims.UserID).To(Equal("adm-1"))
				Expect(claims.Email).To(Equal("admin@example.com"))
				Expect(claims.TokenType).To(Equal(TokenTypeAccess))
			})

			It("should notify auth state listeners", func() {
				var changes []AuthStateChange
				unsubscribe := service.OnAuthStateChange(func(c AuthStateChange) {
					changes = append(changes, c)
				})

				_, err := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})
				Expect(err).ToNot(HaveOccurred())

				unsubscribe()
				_, err = service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})
				Expect(err).ToNot(HaveOccurred())

				Expect(changes).To(HaveLen(1))
				Expect(changes[0].Event).To(Equal(AuthStateSignedIn))
				Expect(changes[0].UserID).To(Equal("emp-1"))
			})
		})

		Context("when sign in fails", func() {
			It("should report UserNotFound for an unknown email", func() {
				result, err := service.SignIn(ctx, LoginDTO{Email: "nobody@example.com", Password: "any_password"})

				Expect(result).To(BeNil())
				Expect(err).To(MatchError(ErrUserNotFound))
				Expect(KindOf(err)).To(Equal(KindUserNotFound))
			})

			It("should report WrongPassword for a bad password", func() {
				_, err := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "wrong_password"})

				Expect(KindOf(err)).To(Equal(KindWrongPassword))
			})

			It("should report InvalidEmail for a malformed email", func() {
				_, err := service.SignIn(ctx, LoginDTO{Email: "not-an-email", Password: "x"})

				Expect(KindOf(err)).To(Equal(KindInvalidEmail))
			})

			DescribeTable("disabled employee statuses",
				func(status string, disabled bool) {
					Expect(isDisabledStatus(status)).To(Equal(disabled))
				},
				Entry("Active may sign in", "Active", false),
				Entry("OnLeave may sign in", "OnLeave", false),
				Entry("Inactive is disabled", "Inactive", true),
				Entry("Terminated is disabled", "Terminated", true),
			)

			It("should report UserDisabled for inactive employees", func() {
				mockRepo.credentials["idle@example.com"] = &Credentials{UserID: "idle-1", Email: "idle@example.com",
					PasswordHash: mockRepo.credentials["employee@example.com"].PasswordHash, Status: "Inactive"}

				_, err := service.SignIn(ctx, LoginDTO{Email: "idle@example.com", Password: "correct_password"})

				Expect(KindOf(err)).To(Equal(KindUserDisabled))
			})

			It("should report UserDisabled for terminated employees", func() {
				_, err := service.SignIn(ctx, LoginDTO{Email: "gone@example.com", Password: "correct_password"})

				Expect(KindOf(err)).To(Equal(KindUserDisabled))
			})

			It("should report Unknown when the repository fails", func() {
				mockRepo.setError(errors.New("database error"))

				_, err := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})

				Expect(KindOf(err)).To(Equal(KindUnknown))
				Expect(errors.Unwrap(err)).To(MatchError("database error"))
			})

			It("should fail closed when the profile is missing", func() {
				result, err := service.SignIn(ctx, LoginDTO{Email: "orphan@example.com", Password: "correct_password"})

				Expect(result).To(BeNil())
				Expect(err).To(MatchError(ErrProfileNotFound))
			})
		})

		Context("when input validation fails", func() {
			It("should return validation error for empty email", func() {
				_, err := service.SignIn(ctx, LoginDTO{Email: "", Password: "password"})

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("email is required"))
			})

			It("should return validation error for empty password", func() {
				_, err := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: ""})

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("password is required"))
			})
		})
	})

	Describe("RefreshTokens", func() {
		var refreshToken string

		BeforeEach(func() {
			result, err := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})
			Expect(err).ToNot(HaveOccurred())
			refreshToken = result.RefreshToken
		})

		It("should issue new tokens for a valid refresh token", func() {
			tokens, err := service.RefreshTokens(ctx, refreshToken)

			Expect(err).ToNot(HaveOccurred())
			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("emp-1"))
		})

		It("should reject an access token used as refresh token", func() {
			result, _ := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})

			_, err := service.RefreshTokens(ctx, result.AccessToken)

			Expect(err).To(MatchError(ErrInvalidToken))
		})

		It("should reject garbage", func() {
			_, err := service.RefreshTokens(ctx, "not.a.token")

			Expect(err).To(MatchError(ErrInvalidToken))
		})

		It("should fail closed when the profile has been removed", func() {
			delete(mockRepo.profiles, "emp-1")

			_, err := service.RefreshTokens(ctx, refreshToken)

			Expect(err).To(MatchError(ErrProfileNotFound))
		})
	})

	Describe("SignOut", func() {
		It("should revoke the access token", func() {
			result, err := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})
			Expect(err).ToNot(HaveOccurred())

			var events []AuthStateEvent
			service.OnAuthStateChange(func(c AuthStateChange) { events = append(events, c.Event) })

			Expect(service.SignOut(ctx, result.AccessToken)).To(Succeed())

			_, err = service.ValidateAccessToken(result.AccessToken)
			Expect(err).To(MatchError(ErrInvalidToken))
			Expect(events).To(Equal([]AuthStateEvent{AuthStateSignedOut}))
		})

		It("should reject signing out twice", func() {
			result, _ := service.SignIn(ctx, LoginDTO{Email: "employee@example.com", Password: "correct_password"})
			Expect(service.SignOut(ctx, result.AccessToken)).To(Succeed())

			Expect(service.SignOut(ctx, result.AccessToken)).To(MatchError(ErrInvalidToken))
		})
	})

	Describe("ValidateAccessToken", func() {
		It("should report expired tokens", func() {
			shortGen := NewJWTTokenGenerator(accessSecret, refreshSecret, time.Millisecond, refreshTTL)
			token, _, err := shortGen.GenerateAccessToken("emp-1", "employee@example.com")
			Expect(err).ToNot(HaveOccurred())

			time.Sleep(1100 * time.Millisecond)

			_, err = service.ValidateAccessToken(token)
			Expect(err).To(MatchError(ErrTokenExpired))
		})

		It("should reject tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("another-access-secret-0123456789abcd", refreshSecret, accessTTL, refreshTTL)
			token, _, _ := other.GenerateAccessToken("emp-1", "employee@example.com")

			_, err := service.ValidateAccessToken(token)
			Expect(err).To(MatchError(ErrInvalidToken))
		})
	})

	Describe("GetProfile", func() {
		It("should fail closed for an empty id", func() {
			_, err := service.GetProfile(ctx, "")
			Expect(err).To(MatchError(ErrProfileNotFound))
		})

		It("should never return a nil permission map", func() {
			p, err := service.GetProfile(ctx, "adm-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Permissions).ToNot(BeNil())
		})

		It("should wrap repository failures", func() {
			mockRepo.setError(errors.New("connection reset"))

			_, err := service.GetProfile(ctx, "adm-1")
			Expect(err).To(MatchError(ContainSubstring("connection reset")))
			Expect(errors.Is(err, ErrProfileNotFound)).To(BeFalse())
		})
	})

	Describe("HashPassword", func() {
		It("should produce a bcrypt hash that verifies", func() {
			hash, err := service.HashPassword("s3cret")
			Expect(err).ToNot(HaveOccurred())
			Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret"))).To(Succeed())
		})
	})
})
