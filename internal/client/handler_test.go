package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	clientpkg "github.com/socialagro/social-agro-backend/internal/client"
	"github.com/socialagro/social-agro-backend/internal/transport"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

var _ = Describe("Handler", func() {
	var router chi.Router

	BeforeEach(func() {
		service := clientpkg.NewService(newMockClientRepository(), bcrypt.MinCost, logger.Discard())
		handler := clientpkg.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		router = chi.NewRouter()
		router.Get("/admin/clientes", handler.ListClients)
		router.Post("/admin/clientes", handler.CreateClient)
		router.Put("/admin/clientes/{id}", handler.UpdateClient)
	})

	do := func(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var decoded map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &decoded)).To(Succeed())
		return rec, decoded
	}

	It("creates, updates and lists clients", func() {
		rec, body := do(http.MethodPost, "/admin/clientes", `{"nome":"Bia","email":"bia@agro.com","senha":"s","valor_personalizado":"49,90"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		created := body["cliente"].(map[string]interface{})
		Expect(created["valor_personalizado_centavos"]).To(Equal(float64(4990)))
		Expect(created).NotTo(HaveKey("senha_hash"))

		_, _ = do(http.MethodPost, "/admin/clientes", `{"nome":"Ana","email":"ana@agro.com","senha":"s"}`)

		rec, body = do(http.MethodPut, "/admin/clientes/1", `{"nome":"Bia Souza","email":"bia@agro.com"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(body["cliente"]).To(HaveKeyWithValue("nome", "Bia Souza"))

		rec, body = do(http.MethodGet, "/admin/clientes", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		clients := body["clientes"].([]interface{})
		Expect(clients).To(HaveLen(2))
		Expect(clients[0]).To(HaveKeyWithValue("nome", "Ana"))
	})

	It("returns 409 on a duplicate email", func() {
		_, _ = do(http.MethodPost, "/admin/clientes", `{"nome":"Ana","email":"ana@agro.com","senha":"s"}`)
		rec, body := do(http.MethodPost, "/admin/clientes", `{"nome":"Ana 2","email":"ana@agro.com","senha":"s"}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(body["error"]).To(Equal("Já existe um cliente com esse email"))
	})

	It("returns 404 when updating a missing client", func() {
		rec, body := do(http.MethodPut, "/admin/clientes/77", `{"nome":"X","email":"x@agro.com"}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(body["error"]).To(Equal("Cliente não encontrado"))
	})

	It("returns 400 for a non-numeric id", func() {
		rec, body := do(http.MethodPut, "/admin/clientes/abc", `{"nome":"X","email":"x@agro.com"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(body["error"]).To(Equal("ID inválido"))
	})

	It("returns 400 for an object valor_personalizado", func() {
		rec, _ := do(http.MethodPost, "/admin/clientes", `{"nome":"A","email":"a@agro.com","senha":"s","valor_personalizado":{}}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
