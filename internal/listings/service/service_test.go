package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	ddomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
)

type fakeListingRepo struct {
	created []domain.Listing
	failing bool
}

func (f *fakeListingRepo) Create(ctx context.Context, l domain.Listing) error {
	if f.failing {
		return errors.New("insert failed")
	}
	f.created = append(f.created, l)
	return nil
}

func (f *fakeListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	for _, l := range f.created {
		if l.ID == id {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeListingRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	l, _ := f.GetByID(ctx, id)
	return l != nil, nil
}

type fakeNotifier struct {
	calls  int
	result ddomain.TriggerResult
}

func (f *fakeNotifier) OnListingCreated(ctx context.Context, id uuid.UUID) ddomain.TriggerResult {
	f.calls++
	return f.result
}

func TestCreate_TriggersNotifications(t *testing.T) {
	repo := &fakeListingRepo{}
	notifier := &fakeNotifier{result: ddomain.TriggerResult{Success: true, NotificationsQueued: 3, NotificationsSent: 3}}
	svc := New(repo, notifier)

	l, trigger, err := svc.Create(context.Background(), CreateInput{
		Title:         "Engineering Career Fair",
		Location:      "Zachry",
		StartsAt:      time.Now().Add(72 * time.Hour),
		AudienceRoles: []string{"student"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, notifier.calls)
	require.Equal(t, 3, trigger.NotificationsQueued)
	require.Len(t, repo.created, 1)
	require.Equal(t, l.ID, repo.created[0].ID)
}

func TestCreate_TriggerFailureDoesNotFailCreation(t *testing.T) {
	repo := &fakeListingRepo{}
	notifier := &fakeNotifier{result: ddomain.TriggerResult{Success: false, Error: "no eligible recipients"}}
	svc := New(repo, notifier)

	_, trigger, err := svc.Create(context.Background(), CreateInput{Title: "Quiet Event"})
	require.NoError(t, err)
	require.False(t, trigger.Success)
	require.Len(t, repo.created, 1)
}

func TestCreate_RequiresTitle(t *testing.T) {
	svc := New(&fakeListingRepo{}, &fakeNotifier{})
	_, _, err := svc.Create(context.Background(), CreateInput{Title: "  "})
	require.ErrorIs(t, err, ErrTitleRequired)
}

func TestCreate_RepoErrorSkipsTrigger(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := New(&fakeListingRepo{failing: true}, notifier)
	_, _, err := svc.Create(context.Background(), CreateInput{Title: "X"})
	require.Error(t, err)
	require.Zero(t, notifier.calls)
}
