package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/auth"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/admin"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
	"github.com/socialagro/social-agro-backend/internal/transport"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		admins   *mockAdminRepository
		tokenGen *auth.JWTTokenGenerator
		handler  *auth.Handler
	)

	ginkgo.BeforeEach(func() {
		admins = newMockAdminRepository()
		admins.admins["maria@agro.com"] = &admin.Admin{ID: 3, Name: "Maria", Email: "maria@agro.com", PasswordHash: mustHash("senha123")}
		clients := &mockClientLookup{clients: map[string]*client.Client{
			"ana@agro.com": {ID: 7, Name: "Ana", Email: "ana@agro.com", PasswordHash: mustHash("segredo")},
		}}
		tokenGen = auth.NewJWTTokenGenerator(testSecret, time.Hour)
		service := auth.NewService(admins, clients, tokenGen, internal.SecurityConfig{BCryptCost: bcrypt.MinCost})
		handler = auth.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
	})

	decode := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var body map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body
	}

	serve := func(h http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	ginkgo.Describe("RegisterAdmin", func() {
		ginkgo.It("returns 201 without the password hash", func() {
			rec := serve(handler.RegisterAdmin, http.MethodPost, "/admin/register", `{"nome":"João","email":"joao@agro.com","senha":"x"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

			created := decode(rec)["admin"].(map[string]interface{})
			gomega.Expect(created["email"]).To(gomega.Equal("joao@agro.com"))
			gomega.Expect(created["nome"]).To(gomega.Equal("João"))
			gomega.Expect(created).ToNot(gomega.HaveKey("senha_hash"))
		})

		ginkgo.It("returns 409 for an existing email", func() {
			rec := serve(handler.RegisterAdmin, http.MethodPost, "/admin/register", `{"nome":"M","email":"maria@agro.com","senha":"x"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
			gomega.Expect(decode(rec)["error"]).To(gomega.Equal("Já existe um admin com esse email"))
		})

		ginkgo.It("returns 400 for malformed JSON", func() {
			rec := serve(handler.RegisterAdmin, http.MethodPost, "/admin/register", `{"nome":`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("LoginAdmin", func() {
		ginkgo.It("returns the token and admin", func() {
			rec := serve(handler.LoginAdmin, http.MethodPost, "/admin/login", `{"email":"maria@agro.com","senha":"senha123"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			body := decode(rec)
			gomega.Expect(body["token"]).ToNot(gomega.BeEmpty())
			gomega.Expect(body["admin"]).To(gomega.HaveKeyWithValue("id", float64(3)))
		})

		ginkgo.It("returns 401 for bad credentials", func() {
			rec := serve(handler.LoginAdmin, http.MethodPost, "/admin/login", `{"email":"maria@agro.com","senha":"x"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(rec)["error"]).To(gomega.Equal("Credenciais inválidas"))
		})

		ginkgo.It("returns 400 when fields are missing", func() {
			rec := serve(handler.LoginAdmin, http.MethodPost, "/admin/login", `{}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(decode(rec)["error"]).To(gomega.Equal("Email e senha são obrigatórios"))
		})
	})

	ginkgo.Describe("LoginClient", func() {
		ginkgo.It("returns the token and cliente", func() {
			rec := serve(handler.LoginClient, http.MethodPost, "/client/login", `{"email":"ana@agro.com","senha":"segredo"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			body := decode(rec)
			gomega.Expect(body["cliente"]).To(gomega.HaveKeyWithValue("nome", "Ana"))
			gomega.Expect(body["cliente"]).To(gomega.HaveKeyWithValue("plano", gomega.BeNil()))
		})
	})

	ginkgo.Describe("RequireRole", func() {
		var reached *internal.Subject

		protected := func(roles ...string) http.Handler {
			return handler.RequireRole(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ := internal.SubjectFromContext(r.Context())
				reached = &subject
				w.WriteHeader(http.StatusNoContent)
			}))
		}

		call := func(h http.Handler, token string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		tokenFor := func(role string) string {
			token, err := tokenGen.GenerateAccessToken(internal.Subject{ID: 7, Role: role, Email: "a@agro.com", Name: "A"}, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			return token
		}

		ginkgo.BeforeEach(func() {
			reached = nil
		})

		ginkgo.It("passes the subject to the next handler", func() {
			rec := call(protected(internal.RoleClient), tokenFor(internal.RoleClient))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(reached).ToNot(gomega.BeNil())
			gomega.Expect(reached.ID).To(gomega.Equal(int64(7)))
			gomega.Expect(reached.Role).To(gomega.Equal(internal.RoleClient))
		})

		ginkgo.It("returns 401 without a token", func() {
			rec := call(protected(internal.RoleClient), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(rec)["error"]).To(gomega.Equal("Token não fornecido"))
			gomega.Expect(reached).To(gomega.BeNil())
		})

		ginkgo.It("returns 401 for an invalid token", func() {
			rec := call(protected(internal.RoleClient), "garbage")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(rec)["error"]).To(gomega.Equal("Token inválido"))
		})

		ginkgo.It("returns 403 for the wrong role", func() {
			rec := call(protected(internal.RoleAdmin), tokenFor(internal.RoleClient))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeNil())
		})
	})
})
