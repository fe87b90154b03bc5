package nocodb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
)

// fakeNocoDB emulates the subset of the v2 records API the client uses.
// Ids are returned as strings on purpose to exercise normalization.
type fakeNocoDB struct {
	mu     sync.Mutex
	nextID int
	tables map[string][]map[string]any
	token  string
}

var recordsPath = regexp.MustCompile(`^/api/v2/tables/([^/]+)/records(/count)?$`)
var termRe = regexp.MustCompile(`\(([^,]+),eq,([^)]*)\)`)

func newFakeNocoDB(token string) *fakeNocoDB {
	return &fakeNocoDB{tables: map[string][]map[string]any{}, token: token}
}

func (f *fakeNocoDB) seed(table string, row map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row["Id"] = strconv.Itoa(f.nextID)
	f.tables[table] = append(f.tables[table], row)
}

func (f *fakeNocoDB) matches(row map[string]any, where string) bool {
	if where == "" {
		return true
	}
	or := strings.Contains(where, "~or")
	result := !or
	for _, m := range termRe.FindAllStringSubmatch(where, -1) {
		ok := fmt.Sprint(row[m[1]]) == m[2]
		if or {
			result = result || ok
		} else {
			result = result && ok
		}
	}
	return result
}

func (f *fakeNocoDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("xc-token") != f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	m := recordsPath.FindStringSubmatch(r.URL.Path)
	if m == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	table, isCount := m[1], m[2] != ""

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		where := r.URL.Query().Get("where")
		var hits []map[string]any
		for _, row := range f.tables[table] {
			if f.matches(row, where) {
				hits = append(hits, row)
			}
		}
		if isCount {
			_ = json.NewEncoder(w).Encode(map[string]any{"count": len(hits)})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := offset + limit
		if end > len(hits) || limit == 0 {
			end = len(hits)
		}
		if offset > len(hits) {
			offset = len(hits)
		}
		page := hits[offset:end]
		if page == nil {
			page = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"list":     page,
			"pageInfo": map[string]any{"isLastPage": end >= len(hits)},
		})
	case http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.nextID++
		body["Id"] = strconv.Itoa(f.nextID)
		f.tables[table] = append(f.tables[table], body)
		_ = json.NewEncoder(w).Encode(map[string]any{"Id": f.nextID})
	case http.MethodPatch:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := fmt.Sprint(body["Id"])
		for _, row := range f.tables[table] {
			if fmt.Sprint(row["Id"]) == id {
				for k, v := range body {
					if k != "Id" {
						row[k] = v
					}
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"Id": id})
	case http.MethodDelete:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := fmt.Sprint(body["Id"])
		rows := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if fmt.Sprint(row["Id"]) != id {
				rows = append(rows, row)
			}
		}
		f.tables[table] = rows
		_ = json.NewEncoder(w).Encode(map[string]any{"Id": id})
	}
}

var testTables = Tables{
	Padron:         "padron",
	Usuarios:       "usuarios",
	Propuestas:     "propuestas",
	Votos:          "votos",
	Reportes:       "reportes",
	Notificaciones: "notificaciones",
}

type StoreSuite struct {
	suite.Suite
	fake   *fakeNocoDB
	server *httptest.Server
	store  repository.Store
	ctx    context.Context
}

func (s *StoreSuite) SetupTest() {
	s.fake = newFakeNocoDB("secret")
	s.server = httptest.NewServer(s.fake)
	s.store = New(NewClient(s.server.URL, "secret", time.Second, nil), testTables)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.server.Close()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestRollLookupNormalizesStringFields() {
	s.fake.seed("padron", map[string]any{"dni": "12.345.678", "nombre": "Ana", "apellido": "Paz", "localidad": "Centro"})
	s.fake.seed("padron", map[string]any{"dni": "12345678", "nombre": "Ana", "apellido": "Paz", "localidad": "Centro"})

	e, err := s.store.Roll.FindByDNI(s.ctx, "12345678")
	s.Require().NoError(err)
	s.Equal("12345678", e.DNI)
	s.Equal(int64(2), e.ID)
	s.Equal("Ana Paz", e.DisplayName())

	_, err = s.store.Roll.FindByDNI(s.ctx, "999")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *StoreSuite) TestAccountLifecycle() {
	exp := time.Now().Add(time.Hour).UTC()
	a := &entity.Account{DNI: "123", Email: "ana@example.com", PasswordHash: "h", DisplayName: "Ana Paz",
		VerificationToken: "tok", VerificationExpiresAt: &exp}
	s.Require().NoError(s.store.Accounts.Create(s.ctx, a))
	s.NotZero(a.ID)

	dup := &entity.Account{DNI: "999", Email: "ana@example.com"}
	s.ErrorIs(s.store.Accounts.Create(s.ctx, dup), repository.ErrDuplicate)

	found, err := s.store.Accounts.FindByDNIOrEmail(s.ctx, "123", "")
	s.Require().NoError(err)
	s.Equal(a.ID, found.ID)
	s.False(found.EmailVerified)

	consumed, err := s.store.Accounts.ConsumeVerificationToken(s.ctx, "tok", time.Now())
	s.Require().NoError(err)
	s.True(consumed.EmailVerified)
	s.Empty(consumed.VerificationToken)

	_, err = s.store.Accounts.ConsumeVerificationToken(s.ctx, "tok", time.Now())
	s.ErrorIs(err, repository.ErrNotFound)

	reloaded, err := s.store.Accounts.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.True(reloaded.EmailVerified)
	s.Nil(reloaded.VerificationExpiresAt)
}

func (s *StoreSuite) TestExpiredTokenIsNotConsumed() {
	exp := time.Now().Add(-time.Minute).UTC()
	a := &entity.Account{DNI: "1", Email: "x@example.com", VerificationToken: "old", VerificationExpiresAt: &exp}
	s.Require().NoError(s.store.Accounts.Create(s.ctx, a))

	_, err := s.store.Accounts.ConsumeVerificationToken(s.ctx, "old", time.Now())
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *StoreSuite) TestVoteUniquenessAndProposalCascade() {
	p := &entity.Proposal{Titulo: "Plaza", Descripcion: "Arreglar la plaza", AutorID: 1, Localidad: "Centro"}
	s.Require().NoError(s.store.Proposals.Create(s.ctx, p))

	v := &entity.Vote{UsuarioID: 7, PropuestaID: p.ID, Valor: entity.VoteFor}
	s.Require().NoError(s.store.Votes.Create(s.ctx, v))
	s.ErrorIs(s.store.Votes.Create(s.ctx, &entity.Vote{UsuarioID: 7, PropuestaID: p.ID, Valor: entity.VoteAgainst}), repository.ErrDuplicate)

	s.Require().NoError(s.store.Votes.UpdateValue(s.ctx, v.ID, entity.VoteAgainst))
	got, err := s.store.Votes.Find(s.ctx, 7, p.ID)
	s.Require().NoError(err)
	s.Equal(entity.VoteAgainst, got.Valor)

	s.Require().NoError(s.store.Proposals.Delete(s.ctx, p.ID))
	votes, err := s.store.Votes.ListByUser(s.ctx, 7)
	s.Require().NoError(err)
	s.Empty(votes)
	_, err = s.store.Proposals.GetByID(s.ctx, p.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *StoreSuite) TestNotificationsAcceptLegacyTypeNames() {
	s.fake.seed("notificaciones", map[string]any{"usuarioId": "3", "propuestaId": "9", "tipo": "voto_negativo", "mensaje": "m", "leida": nil})
	s.fake.seed("notificaciones", map[string]any{"usuarioId": "3", "tipo": "reporte", "mensaje": "m2", "leida": true})

	all, err := s.store.Notifications.ListByRecipient(s.ctx, 3, false)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(entity.NotificationVoteNegative, all[0].Tipo)
	s.Require().NotNil(all[0].PropuestaID)
	s.Equal(int64(9), *all[0].PropuestaID)
	s.Nil(all[1].PropuestaID)

	unread, err := s.store.Notifications.ListByRecipient(s.ctx, 3, true)
	s.Require().NoError(err)
	s.Len(unread, 1)

	s.Require().NoError(s.store.Notifications.MarkRead(s.ctx, unread[0].ID))
	n, err := s.store.Notifications.GetByID(s.ctx, unread[0].ID)
	s.Require().NoError(err)
	s.True(n.Leida)
}

func (s *StoreSuite) TestReportCount() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Reports.Create(s.ctx, &entity.Report{UsuarioID: int64(i), PropuestaID: 4}))
	}
	n, err := s.store.Reports.CountByProposal(s.ctx, 4)
	s.Require().NoError(err)
	s.Equal(3, n)
}

func TestListPagesUntilLastPage(t *testing.T) {
	fake := newFakeNocoDB("t")
	for i := 0; i < 250; i++ {
		fake.seed("votos", map[string]any{"usuarioId": i, "propuestaId": 1, "valor": 1})
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second, nil)
	recs, err := c.List(context.Background(), "votos", Eq("propuestaId", 1), 0)
	require.NoError(t, err)
	assert.Len(t, recs, 250)

	limited, err := c.List(context.Background(), "votos", Where{}, 5)
	require.NoError(t, err)
	assert.Len(t, limited, 5)
}

func TestClientSurfacesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(newFakeNocoDB("right"))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong", time.Second, nil)
	_, err := c.List(context.Background(), "usuarios", Where{}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestWhereBuilder(t *testing.T) {
	w := Eq("dni", "1,2").Or(Eq("email", "a@b.c"))
	assert.Equal(t, "(dni,eq,12)~or(email,eq,a@b.c)", w.String())
	assert.True(t, Where{}.IsZero())
	assert.Equal(t, "(a,eq,1)", Where{}.And(Eq("a", 1)).String())
}

func TestRecordCoercion(t *testing.T) {
	r := Record{
		"id":    json.Number("12"),
		"n":     "42",
		"f":     "-34.5",
		"b":     json.Number("1"),
		"link":  map[string]any{"Id": "8"},
		"when":  "2024-05-01 10:00:00+00:00",
		"blank": "",
	}
	assert.Equal(t, int64(12), r.ID())
	assert.Equal(t, int64(42), r.Int64("n"))
	assert.Equal(t, int64(8), r.Int64("link"))
	require.NotNil(t, r.Float("f"))
	assert.InDelta(t, -34.5, *r.Float("f"), 1e-9)
	assert.Nil(t, r.Float("blank"))
	assert.True(t, r.Bool("b"))
	require.NotNil(t, r.Time("when"))
	assert.Equal(t, 2024, r.Time("when").Year())
}
