package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/socialagro/social-agro-backend/internal"
	clientpkg "github.com/socialagro/social-agro-backend/internal/client"
	clientDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

type mockClientRepository struct {
	mu        sync.Mutex
	rows      map[int64]*clientDatamodel.Client
	nextID    int64
	listError error
}

func newMockClientRepository() *mockClientRepository {
	return &mockClientRepository{rows: map[int64]*clientDatamodel.Client{}}
}

func (m *mockClientRepository) List(ctx context.Context) ([]*clientDatamodel.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listError != nil {
		return nil, m.listError
	}
	var out []*clientDatamodel.Client
	for _, c := range m.rows {
		row := *c
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockClientRepository) GetByID(ctx context.Context, id int64) (*clientDatamodel.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[id]; ok {
		row := *c
		return &row, nil
	}
	return nil, internal.ErrClientNotFound
}

func (m *mockClientRepository) GetByEmail(ctx context.Context, email string) (*clientDatamodel.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.Email == email {
			row := *c
			return &row, nil
		}
	}
	return nil, internal.ErrClientNotFound
}

func (m *mockClientRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.rows {
		if c.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClientRepository) Create(ctx context.Context, c *clientDatamodel.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	row := *c
	m.rows[c.ID] = &row
	return nil
}

func (m *mockClientRepository) Update(ctx context.Context, c *clientDatamodel.Client, updatePassword bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[c.ID]
	if !ok {
		return internal.ErrClientNotFound
	}
	existing.Name = c.Name
	existing.Email = c.Email
	existing.Plan = c.Plan
	existing.PaymentDate = c.PaymentDate
	existing.CustomAmountCents = c.CustomAmountCents
	if updatePassword {
		existing.PasswordHash = c.PasswordHash
	}
	return nil
}

func decodeCreate(raw string) clientpkg.CreateClientDTO {
	var dto clientpkg.CreateClientDTO
	Expect(json.Unmarshal([]byte(raw), &dto)).To(Succeed())
	return dto
}

func decodeUpdate(raw string) clientpkg.UpdateClientDTO {
	var dto clientpkg.UpdateClientDTO
	Expect(json.Unmarshal([]byte(raw), &dto)).To(Succeed())
	return dto
}

var _ = Describe("Service", func() {
	var (
		repo    *mockClientRepository
		service *clientpkg.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockClientRepository()
		service = clientpkg.NewService(repo, bcrypt.MinCost, logger.Discard())
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("hashes the password and normalizes valor_personalizado", func() {
			created, err := service.Create(ctx, decodeCreate(`{"nome":"Ana","email":"ana@agro.com","senha":"segredo","plano":"Raíz","valor_personalizado":"1.234,56"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(*created.CustomAmountCents).To(Equal(int64(123456)))
			Expect(*created.Plan).To(Equal("Raíz"))
			Expect(created.PaymentDate).To(BeNil())
			Expect(bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("segredo"))).To(Succeed())
		})

		It("accepts a numeric valor_personalizado", func() {
			created, err := service.Create(ctx, decodeCreate(`{"nome":"Ana","email":"ana@agro.com","senha":"s","valor_personalizado":350}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(*created.CustomAmountCents).To(Equal(int64(35000)))
		})

		It("stores null for an unparseable valor_personalizado", func() {
			created, err := service.Create(ctx, decodeCreate(`{"nome":"Ana","email":"ana@agro.com","senha":"s","valor_personalizado":"abc"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.CustomAmountCents).To(BeNil())
		})

		It("requires nome, email and senha", func() {
			_, err := service.Create(ctx, decodeCreate(`{"nome":"Ana","email":"ana@agro.com"}`))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(appErr.GetDetailedMessage()).To(Equal("Nome, email e senha são obrigatórios"))
		})

		It("returns a conflict for a duplicate email", func() {
			_, err := service.Create(ctx, decodeCreate(`{"nome":"Ana","email":"ana@agro.com","senha":"s"}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, decodeCreate(`{"nome":"Outra","email":"ana@agro.com","senha":"s"}`))
			Expect(err).To(MatchError(internal.ErrClientEmailTaken))
		})
	})

	Describe("Update", func() {
		var existing *clientDatamodel.Client

		BeforeEach(func() {
			var err error
			existing, err = service.Create(ctx, decodeCreate(`{"nome":"Ana","email":"ana@agro.com","senha":"original","plano":"Raíz","valor_personalizado":"100"}`))
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps the stored hash when senha is blank", func() {
			updated, err := service.Update(ctx, existing.ID, decodeUpdate(`{"nome":"Ana Maria","email":"ana@agro.com","senha":"  "}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Ana Maria"))
			Expect(updated.PasswordHash).To(Equal(existing.PasswordHash))
		})

		It("replaces the hash when senha is given", func() {
			updated, err := service.Update(ctx, existing.ID, decodeUpdate(`{"nome":"Ana","email":"ana@agro.com","senha":"nova"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("nova"))).To(Succeed())
		})

		It("clears optional fields that are absent", func() {
			updated, err := service.Update(ctx, existing.ID, decodeUpdate(`{"nome":"Ana","email":"ana@agro.com"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Plan).To(BeNil())
			Expect(updated.CustomAmountCents).To(BeNil())
		})

		It("normalizes valor_personalizado", func() {
			updated, err := service.Update(ctx, existing.ID, decodeUpdate(`{"nome":"Ana","email":"ana@agro.com","valor_personalizado":"R$ 1.997,00"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(*updated.CustomAmountCents).To(Equal(int64(199700)))
		})

		It("returns not found for unknown ids", func() {
			_, err := service.Update(ctx, 999, decodeUpdate(`{"nome":"X","email":"x@agro.com"}`))
			Expect(err).To(MatchError(internal.ErrClientNotFound))
		})

		It("returns a conflict when the email belongs to another client", func() {
			_, err := service.Create(ctx, decodeCreate(`{"nome":"Bia","email":"bia@agro.com","senha":"s"}`))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Update(ctx, existing.ID, decodeUpdate(`{"nome":"Ana","email":"bia@agro.com"}`))
			Expect(err).To(MatchError(internal.ErrClientEmailTaken))
		})

		It("requires nome and email", func() {
			_, err := service.Update(ctx, existing.ID, decodeUpdate(`{"nome":"Ana"}`))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.GetDetailedMessage()).To(Equal("Nome e email são obrigatórios"))
		})
	})

	Describe("List", func() {
		It("returns an empty slice when there are no clients", func() {
			clients, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(clients).NotTo(BeNil())
			Expect(clients).To(BeEmpty())
		})

		It("wraps repository failures", func() {
			repo.listError = errors.New("db down")
			_, err := service.List(ctx)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
		})
	})
})
