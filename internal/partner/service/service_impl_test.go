package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	"github.com/smallbiznis/partnerbot/internal/partner/domain"
	"github.com/smallbiznis/partnerbot/internal/partner/repository"
	settingsdomain "github.com/smallbiznis/partnerbot/internal/settings/domain"
	settingsservice "github.com/smallbiznis/partnerbot/internal/settings/service"
	"github.com/smallbiznis/partnerbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) DirectMessage(ctx context.Context, userID string, kind notification.Kind, payload notification.Payload) error {
	return m.Called(userID, kind).Error(0)
}

func (m *mockSink) SetRole(ctx context.Context, userID, roleID string, present bool) error {
	return m.Called(userID, roleID, present).Error(0)
}

func (m *mockSink) Announce(ctx context.Context, channelID string, msg notification.Message) error {
	return m.Called(channelID, msg.Title).Error(0)
}

type failingDeleteRepo struct {
	domain.Repository
}

func (failingDeleteRepo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return errors.New("database is locked")
}

type harness struct {
	svc      domain.Service
	settings settingsdomain.Service
	sink     *mockSink
	lookups  map[string]auditdomain.Resolution
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithRepo(t, repository.Provide())
}

func newHarnessWithRepo(t *testing.T, repo domain.Repository) *harness {
	t.Helper()
	gormDB := dbtest.Open(t, &domain.Partner{}, &settingsdomain.Settings{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	cfg := config.Config{}
	cfg.Discord.PartnerRoleID = "role-partner"
	cfg.Discord.Channels.Log = "log"
	cfg.Discord.Channels.Community = "community"

	h := &harness{
		sink:    &mockSink{},
		lookups: map[string]auditdomain.Resolution{},
	}
	h.settings = settingsservice.New(settingsservice.Params{DB: gormDB, Log: zap.NewNop(), Clock: clk})
	h.svc = New(Params{
		DB:       gormDB,
		Log:      zap.NewNop(),
		GenID:    node,
		Config:   cfg,
		Policy:   config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Clock:    clk,
		Repo:     repo,
		Settings: h.settings,
		Lookup: auditdomain.DirectoryLookupFunc(func(ctx context.Context, ref string) (auditdomain.Resolution, error) {
			if res, ok := h.lookups[ref]; ok {
				return res, nil
			}
			return auditdomain.Resolution{}, errors.New("HTTP 404 Not Found")
		}),
		Sink: h.sink,
	})
	return h
}

func (h *harness) openApplications(t *testing.T) {
	t.Helper()
	_, err := h.settings.SetApplicationsOpen(context.Background(), true)
	require.NoError(t, err)
}

func TestAddManualRecordsInitialMemberCount(t *testing.T) {
	h := newHarness(t)
	h.lookups["https://discord.gg/alpha"] = auditdomain.Resolution{Valid: true, MemberCount: 42}
	h.sink.On("Announce", "log", "Partner added").Return(nil).Once()

	p, err := h.svc.AddManual(context.Background(), domain.AddRequest{
		Name:            "  Alpha Server ",
		InviteReference: "https://discord.gg/alpha",
		Description:     "Gaming community",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alpha Server", p.Name)
	assert.Equal(t, "alpha-server", p.Slug)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Equal(t, 42, p.MemberCount)
	assert.Nil(t, p.ApplicantID)
	h.sink.AssertExpectations(t)
}

func TestAddManualKeepsPartnerWhenInviteDoesNotResolve(t *testing.T) {
	h := newHarness(t)
	h.sink.On("Announce", "log", "Partner added").Return(errors.New("missing access"))

	p, err := h.svc.AddManual(context.Background(), domain.AddRequest{Name: "Bravo", InviteReference: "expired"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Equal(t, 0, p.MemberCount)
}

func TestAddManualRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	h.sink.On("Announce", "log", "Partner added").Return(nil)

	_, err := h.svc.AddManual(context.Background(), domain.AddRequest{Name: "Charlie", InviteReference: "abc"})
	require.NoError(t, err)

	_, err = h.svc.AddManual(context.Background(), domain.AddRequest{Name: "Charlie", InviteReference: "def"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		req  domain.AddRequest
		want error
	}{
		{name: "empty name", req: domain.AddRequest{Name: " ", InviteReference: "abc"}, want: domain.ErrInvalidName},
		{name: "long name", req: domain.AddRequest{Name: strings.Repeat("n", 101), InviteReference: "abc"}, want: domain.ErrInvalidName},
		{name: "empty invite", req: domain.AddRequest{Name: "Delta"}, want: domain.ErrInvalidInvite},
		{name: "invite with spaces", req: domain.AddRequest{Name: "Delta", InviteReference: "discord gg"}, want: domain.ErrInvalidInvite},
		{name: "long description", req: domain.AddRequest{Name: "Delta", InviteReference: "abc", Description: strings.Repeat("d", 1001)}, want: domain.ErrInvalidDescription},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.AddManual(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			h.sink.AssertNotCalled(t, "Announce", mock.Anything, mock.Anything)
		})
	}
}

func TestApplyRejectedWhileApplicationsClosed(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Apply(context.Background(), domain.ApplyRequest{ApplicantID: "user-1", Name: "Echo", InviteReference: "echo"})
	assert.ErrorIs(t, err, domain.ErrApplicationsClosed)
}

func TestApplyRequiresApplicant(t *testing.T) {
	h := newHarness(t)
	h.openApplications(t)

	_, err := h.svc.Apply(context.Background(), domain.ApplyRequest{Name: "Echo", InviteReference: "echo"})
	assert.ErrorIs(t, err, domain.ErrInvalidApplicant)
}

func TestApplyCreatesPendingApplication(t *testing.T) {
	h := newHarness(t)
	h.openApplications(t)
	h.sink.On("DirectMessage", "user-1", notification.KindApplicationReceived).Return(errors.New("cannot send messages to this user")).Once()
	h.sink.On("Announce", "log", "New partner application").Return(nil).Once()

	p, err := h.svc.Apply(context.Background(), domain.ApplyRequest{
		ApplicantID:     "user-1",
		Name:            "Foxtrot",
		InviteReference: "https://discord.gg/foxtrot",
		Description:     "Art server",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Equal(t, "user-1", p.Applicant())
	h.sink.AssertExpectations(t)

	pending := domain.StatusPending
	list, err := h.svc.List(context.Background(), domain.ListRequest{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestAcceptPendingActivatesAndGrantsRole(t *testing.T) {
	h := newHarness(t)
	h.openApplications(t)
	h.sink.On("DirectMessage", "user-2", notification.KindApplicationReceived).Return(nil).Once()
	h.sink.On("Announce", "log", "New partner application").Return(nil).Once()
	h.sink.On("DirectMessage", "user-2", notification.KindApplicationAccepted).Return(nil).Once()
	h.sink.On("SetRole", "user-2", "role-partner", true).Return(errors.New("missing permissions")).Once()
	h.sink.On("Announce", "community", "New partner!").Return(nil).Once()
	h.sink.On("Announce", "log", "Partner accepted").Return(nil).Once()

	_, err := h.svc.Apply(context.Background(), domain.ApplyRequest{ApplicantID: "user-2", Name: "Golf", InviteReference: "golf"})
	require.NoError(t, err)

	p, err := h.svc.AcceptPending(context.Background(), "golf")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, p.Status)
	h.sink.AssertExpectations(t)

	_, err = h.svc.AcceptPending(context.Background(), "Golf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAcceptPendingUnknown(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.AcceptPending(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDenyPendingNotifiesAndDeletes(t *testing.T) {
	h := newHarness(t)
	h.openApplications(t)
	h.sink.On("DirectMessage", "user-3", notification.KindApplicationReceived).Return(nil).Once()
	h.sink.On("Announce", "log", mock.Anything).Return(nil)
	h.sink.On("DirectMessage", "user-3", notification.KindApplicationDenied).Return(nil).Once()

	p, err := h.svc.Apply(context.Background(), domain.ApplyRequest{ApplicantID: "user-3", Name: "Hotel", InviteReference: "hotel"})
	require.NoError(t, err)

	require.NoError(t, h.svc.DenyPending(context.Background(), p.ID.String()))

	_, err = h.svc.Get(context.Background(), "Hotel")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	h.sink.AssertExpectations(t)
}

func TestDenyPendingKeepsApplicantUninformedWhenDeleteFails(t *testing.T) {
	h := newHarnessWithRepo(t, failingDeleteRepo{Repository: repository.Provide()})
	h.openApplications(t)
	h.sink.On("DirectMessage", "user-4", notification.KindApplicationReceived).Return(nil).Once()
	h.sink.On("Announce", "log", "New partner application").Return(nil).Once()

	p, err := h.svc.Apply(context.Background(), domain.ApplyRequest{ApplicantID: "user-4", Name: "Oscar", InviteReference: "oscar"})
	require.NoError(t, err)

	assert.Error(t, h.svc.DenyPending(context.Background(), p.ID.String()))

	stored, err := h.svc.Get(context.Background(), "Oscar")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	h.sink.AssertNotCalled(t, "DirectMessage", "user-4", notification.KindApplicationDenied)
	h.sink.AssertExpectations(t)
}

func TestRemoveDeletesAnyPartner(t *testing.T) {
	h := newHarness(t)
	h.sink.On("Announce", "log", mock.Anything).Return(nil)

	_, err := h.svc.AddManual(context.Background(), domain.AddRequest{Name: "India", InviteReference: "india"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Remove(context.Background(), "India"))
	assert.ErrorIs(t, h.svc.Remove(context.Background(), "India"), domain.ErrNotFound)
}

func TestToggleExempt(t *testing.T) {
	h := newHarness(t)
	h.sink.On("Announce", "log", mock.Anything).Return(nil)

	_, err := h.svc.AddManual(context.Background(), domain.AddRequest{Name: "Juliet", InviteReference: "juliet"})
	require.NoError(t, err)

	p, err := h.svc.ToggleExempt(context.Background(), "juliet")
	require.NoError(t, err)
	assert.True(t, p.ExemptFromRequirements)

	stored, err := h.svc.Get(context.Background(), "Juliet")
	require.NoError(t, err)
	assert.True(t, stored.ExemptFromRequirements)

	p, err = h.svc.ToggleExempt(context.Background(), "juliet")
	require.NoError(t, err)
	assert.False(t, p.ExemptFromRequirements)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)
	status := domain.Status("archived")

	_, err := h.svc.List(context.Background(), domain.ListRequest{Status: &status})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.openApplications(t)
	h.sink.On("Announce", "log", mock.Anything).Return(nil)
	h.sink.On("DirectMessage", mock.Anything, mock.Anything).Return(nil)

	_, err := h.svc.AddManual(context.Background(), domain.AddRequest{Name: "Kilo", InviteReference: "kilo"})
	require.NoError(t, err)
	_, err = h.svc.AddManual(context.Background(), domain.AddRequest{Name: "Lima", InviteReference: "lima"})
	require.NoError(t, err)
	_, err = h.svc.Apply(context.Background(), domain.ApplyRequest{ApplicantID: "user-4", Name: "Mike", InviteReference: "mike"})
	require.NoError(t, err)

	stats, err := h.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{ActivePartners: 2, PendingApplications: 1, ApplicationsOpen: true}, stats)
}

func TestSlugFor(t *testing.T) {
	id := snowflake.ID(1234)

	assert.Equal(t, "night-owls", slugFor("Night Owls!", id))
	assert.Equal(t, "p-2024", slugFor("2024", id))
	assert.Equal(t, "partner-1234", slugFor("!!!", id))
}
