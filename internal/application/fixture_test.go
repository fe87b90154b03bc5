package application

import (
	"context"
	"net/url"
	"sync"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/infrastructure/lock"
	"github.com/participa-vecinal/participa/internal/infrastructure/memory"
	"github.com/participa-vecinal/participa/internal/infrastructure/notifier"
	"github.com/participa-vecinal/participa/pkg/helpers"
)

const (
	centerLat = -32.9468
	centerLng = -60.6393
)

type captureSender struct {
	mu   sync.Mutex
	sent []notifier.Verification
}

func (c *captureSender) SendVerification(_ context.Context, v notifier.Verification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
}

func (c *captureSender) last(t *testing.T) notifier.Verification {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no verification dispatched")
	return c.sent[len(c.sent)-1]
}

// fixture wires every service over one memory store.
type fixture struct {
	mem    *memory.Store
	creds  *Credentials
	sender *captureSender

	registration *RegistrationService
	auth         *AuthService
	voting       *VotingService
	proposals    *ProposalService
	profiles     *ProfileService
	moderation   *ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	mem := memory.New()
	mem.SeedRoll(
		entity.RollEntry{DNI: "30123456", Nombre: "Ana", Apellido: "Paz", Localidad: "Rosario"},
		entity.RollEntry{DNI: "28999111", Nombre: "Bruno", Apellido: "Díaz", Localidad: "Funes"},
		entity.RollEntry{DNI: "40111222", Nombre: "Carla", Apellido: "Gómez", Localidad: "Rosario"},
	)
	store := mem.Repositories()
	locker := lock.NewLocal()
	creds := &Credentials{
		Hasher:   helpers.NewPasswordHasher(bcrypt.MinCost),
		JWT:      helpers.NewJWTManager("test-secret", 0),
		Geofence: helpers.Geofence{CenterLat: centerLat, CenterLng: centerLng, RadiusKm: 30, Enforce: true},
		Locker:   locker,
	}
	sender := &captureSender{}
	proposals := &ProposalService{Store: store, Logger: logger}
	return &fixture{
		mem:    mem,
		creds:  creds,
		sender: sender,
		registration: &RegistrationService{
			Store:  store,
			Creds:  creds,
			Sender: sender,
			VerificationURL: func(token string) string {
				return "http://localhost:3000/verificar-email?token=" + token
			},
			Logger: logger,
		},
		auth:       &AuthService{Store: store, Creds: creds, Logger: logger},
		voting:     &VotingService{Store: store, Locker: locker, Logger: logger},
		proposals:  proposals,
		profiles:   &ProfileService{Store: store, Proposals: proposals, Logger: logger},
		moderation: &ModerationService{Store: store, Logger: logger},
	}
}

func registerInput(dni, email string) RegisterInput {
	return RegisterInput{
		DNI:      dni,
		Email:    email,
		Password: "secreto123",
		Privacy:  entity.PrivacySettings{ShowPublicName: true, ShowPublicVotes: true},
		Lat:      centerLat + 0.01,
		Lng:      centerLng - 0.01,
	}
}

func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok)
	return tok
}

// verifiedUser registers and verifies an account, returning its id.
func (f *fixture) verifiedUser(t *testing.T, in RegisterInput) int64 {
	t.Helper()
	ctx := context.Background()
	res, err := f.registration.Register(ctx, in)
	require.NoError(t, err)
	_, err = f.auth.VerifyEmail(ctx, tokenFromURL(t, f.sender.last(t).URL))
	require.NoError(t, err)
	return res.Account.ID
}

func (f *fixture) proposal(t *testing.T, authorID int64, titulo string) int64 {
	t.Helper()
	v, err := f.proposals.Create(context.Background(), authorID, CreateProposalInput{Titulo: titulo, Descripcion: "Descripción de " + titulo})
	require.NoError(t, err)
	return v.ID
}
