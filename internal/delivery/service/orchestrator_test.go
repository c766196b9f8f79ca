package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	recipsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/service"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/render"
)

type orchEnv struct {
	*procEnv
	orch *Orchestrator
}

func newOrchEnv(t *testing.T) *orchEnv {
	t.Helper()
	pe := newProcEnv(t)
	prefs := recipsvc.NewPreferences(pe.recs)
	resolver := recipsvc.NewResolver(pe.recs, prefs, pe.lst)
	enq := NewEnqueuer(pe.tasks, pe.tpls, prefs, 60*time.Minute)
	orch := NewOrchestrator(pe.lst, pe.tpls, resolver, enq, pe.proc, 50)
	orch.sleep = func(time.Duration) {}
	return &orchEnv{procEnv: pe, orch: orch}
}

func TestOnListingCreated_SoftFailMissingListing(t *testing.T) {
	env := newOrchEnv(t)

	res := env.orch.OnListingCreated(context.Background(), uuid.New())
	require.False(t, res.Success)
	require.Zero(t, res.NotificationsQueued)
	require.Contains(t, res.Error, "not found")
}

func TestOnListingCreated_ZeroRecipientsIsSoftSuccess(t *testing.T) {
	env := newOrchEnv(t)
	l := env.lst.add("Empty Audience Mixer", "alumni") // no alumni recipients exist

	res := env.orch.OnListingCreated(context.Background(), l.ID)
	require.True(t, res.Success)
	require.Zero(t, res.NotificationsQueued)
	require.NotEmpty(t, res.Error)
}

func TestOnListingCreated_HappyPath(t *testing.T) {
	env := newOrchEnv(t)
	env.recs.add("one@example.edu", "student")
	env.recs.add("two@example.edu", "student")
	l := env.lst.add("Resume Workshop", "student")

	res := env.orch.OnListingCreated(context.Background(), l.ID)
	require.True(t, res.Success)
	require.Equal(t, 2, res.NotificationsQueued)
	require.Equal(t, 2, res.NotificationsSent)
	require.Zero(t, res.NotificationsFailed)
	require.Empty(t, res.Error)
	require.Len(t, env.sender.order(), 2)
}

func TestOnListingCreated_OptedOutSkippedSilently(t *testing.T) {
	env := newOrchEnv(t)
	env.recs.add("in@example.edu", "student")
	out := env.recs.add("out@example.edu", "student")
	env.recs.optOut(out.ID)
	l := env.lst.add("Career Fair", "student")

	res := env.orch.OnListingCreated(context.Background(), l.ID)
	require.True(t, res.Success)
	require.Equal(t, 1, res.NotificationsQueued)
	require.Empty(t, res.Error, "opt-outs are not enqueue failures")
}

func TestOnListingCreated_RetriesOnceWhenFirstPassSendsNothing(t *testing.T) {
	env := newOrchEnv(t)
	env.recs.add("one@example.edu", "student")
	l := env.lst.add("Late Night Hack", "student")

	// Virtual clock: tasks get a 4s jitter but the processor only looks 1s
	// ahead, so the first pass finds nothing until sleep advances the clock.
	cur := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return cur }
	env.orch.now = now
	env.orch.intn = func(int) int { return 4 }
	env.proc.now = now
	env.proc.lookahead = time.Second
	env.orch.sleep = func(d time.Duration) { cur = cur.Add(d) }

	res := env.orch.OnListingCreated(context.Background(), l.ID)
	require.True(t, res.Success)
	require.Equal(t, 1, res.NotificationsQueued)
	require.Equal(t, 1, res.NotificationsSent, "second pass must pick up the jittered task")
}

func TestOnListingCreated_PartialSendFailureReported(t *testing.T) {
	env := newOrchEnv(t)
	env.recs.add("ok@example.edu", "student")
	env.recs.add("bad@example.edu", "student")
	env.sender.failFor["bad@example.edu"] = context.DeadlineExceeded
	l := env.lst.add("Mock Interviews", "student")

	res := env.orch.OnListingCreated(context.Background(), l.ID)
	require.True(t, res.Success)
	require.Equal(t, 2, res.NotificationsQueued)
	require.Equal(t, 1, res.NotificationsSent)
	require.Equal(t, 1, res.NotificationsFailed)
}

func TestOnListingCreated_RendersListingContent(t *testing.T) {
	env := newOrchEnv(t)
	env.recs.add("one@example.edu", "student")
	l := env.lst.add("Ring Day", "student")

	// capture rendered content through a selector that wraps the default set
	var lastSubject string
	env.proc.selector = render.NewSelectorWithIntn(func(int) int { return 0 })
	env.proc.sender = senderFunc(func(ctx context.Context, to, subject, body string) error {
		lastSubject = subject
		return nil
	})

	res := env.orch.OnListingCreated(context.Background(), l.ID)
	require.True(t, res.Success)
	require.Contains(t, lastSubject, "Ring Day")
}

type senderFunc func(ctx context.Context, to, subject, body string) error

func (f senderFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}
