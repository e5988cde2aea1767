package annotate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/pubsub"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

type fakeRoster map[string][]roster.Player

func (f fakeRoster) Teams(context.Context) ([]string, error) {
	teams := make([]string, 0, len(f))
	for t := range f {
		teams = append(teams, t)
	}
	return teams, nil
}

func (f fakeRoster) Players(_ context.Context, team string) ([]roster.Player, error) {
	p, ok := f[team]
	if !ok {
		return nil, roster.ErrUnknownTeam
	}
	return p, nil
}

type recorder struct {
	mu     sync.Mutex
	events []pubsub.Event
}

func (r *recorder) Publish(e pubsub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newService(t *testing.T, schema models.Schema) (*Service, *recorder) {
	t.Helper()
	reg := session.NewRegistry(session.Options{Schema: schema, Width: 750, Height: 750}, 0)
	src := fakeRoster{"TeamA": {{Name: "鈴木", Handedness: "左"}, {Name: "田中"}}}
	rec := &recorder{}
	return NewService(reg, src, rec, schema), rec
}

func selection(team, player string) models.Selection {
	sel := models.DefaultSelection()
	sel.Team, sel.Player = team, player
	return sel
}

func TestClickCreatesRecordAndPublishes(t *testing.T) {
	svc, events := newService(t, models.SchemaV2)
	sess := svc.Session("")
	ctx := context.Background()

	res, err := svc.Click(ctx, sess, models.Point{X: 10, Y: 20}, selection("TeamA", "鈴木"))
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Equal(t, "左", res.Record.PlayerHandedness, "handedness comes from the roster")
	assert.Equal(t, []string{pubsub.EventRecordCreated}, events.types())
	assert.Equal(t, "鈴木", sess.Selection().Player)

	res, err = svc.Click(ctx, sess, models.Point{X: 10, Y: 20}, selection("TeamA", "鈴木"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, session.ReasonDuplicate, res.Reason)
	assert.Len(t, events.types(), 1, "ignored clicks publish nothing")
}

func TestClickRejectsInvalidSelection(t *testing.T) {
	svc, events := newService(t, models.SchemaV2)
	sess := svc.Session("")

	sel := selection("TeamA", "鈴木")
	sel.PitchType = "ナックル"
	_, err := svc.Click(context.Background(), sess, models.Point{X: 1, Y: 1}, sel)
	assert.True(t, errors.Is(err, models.ErrInvalidSelection))
	assert.Empty(t, events.types())
	assert.Equal(t, 0, len(svc.Snapshot(sess).Records))
}

func TestClickWithoutPlayerIsSoft(t *testing.T) {
	svc, _ := newService(t, models.SchemaV2)
	sess := svc.Session("")

	res, err := svc.Click(context.Background(), sess, models.Point{X: 1, Y: 1}, selection("TeamA", ""))
	require.NoError(t, err)
	assert.Equal(t, session.ReasonMissingSelection, res.Reason)
}

func TestClickWithEmptySelectionIsSoft(t *testing.T) {
	svc, events := newService(t, models.SchemaV2)
	sess := svc.Session("")

	res, err := svc.Click(context.Background(), sess, models.Point{X: 1, Y: 1}, models.Selection{})
	require.NoError(t, err, "unset categorical fields do not matter without a team and player")
	assert.Equal(t, session.ReasonMissingSelection, res.Reason)
	assert.Empty(t, events.types())
	assert.Equal(t, models.DefaultSelection(), sess.Selection(), "invalid partial selections are not stored")
}

func TestClickWithPlayerOffRosterIsIgnored(t *testing.T) {
	svc, events := newService(t, models.SchemaV2)
	sess := svc.Session("")
	ctx := context.Background()

	res, err := svc.Click(ctx, sess, models.Point{X: 1, Y: 1}, selection("TeamA", "佐藤"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, session.ReasonMissingSelection, res.Reason)
	assert.Empty(t, svc.Snapshot(sess).Records)
	assert.Empty(t, events.types())
	assert.Equal(t, "TeamA", sess.Selection().Team)
	assert.Empty(t, sess.Selection().Player)

	sel, err := svc.Select(ctx, sess, selection("TeamA", "佐藤"))
	require.NoError(t, err)
	assert.False(t, sel.Complete())

	// Teams the source cannot load keep the player as given.
	res, err = svc.Click(ctx, sess, models.Point{X: 2, Y: 2}, selection("Unlisted", "佐藤"))
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestDeleteAndClear(t *testing.T) {
	svc, events := newService(t, models.SchemaV2)
	sess := svc.Session("")
	ctx := context.Background()

	a, _ := svc.Click(ctx, sess, models.Point{X: 1, Y: 1}, selection("TeamA", "田中"))
	_, _ = svc.Click(ctx, sess, models.Point{X: 2, Y: 2}, selection("TeamA", "田中"))

	res := svc.Delete(sess, "missing")
	assert.False(t, res.Deleted)

	res = svc.Delete(sess, a.Record.ID)
	assert.True(t, res.Deleted)
	assert.True(t, res.Rerender)
	assert.True(t, svc.Snapshot(sess).SuppressingNextClick)

	svc.Clear(sess)
	snap := svc.Snapshot(sess)
	assert.Empty(t, snap.Records)
	assert.False(t, snap.SuppressingNextClick)

	assert.Equal(t, []string{
		pubsub.EventRecordCreated,
		pubsub.EventRecordCreated,
		pubsub.EventRecordDeleted,
		pubsub.EventMarkersCleared,
	}, events.types())
}

func TestRowsAndPrepareExport(t *testing.T) {
	svc, _ := newService(t, models.SchemaV1)
	sess := svc.Session("")
	ctx := context.Background()

	_, err := svc.Rows(sess)
	assert.True(t, errors.Is(err, session.ErrEmptyExport))
	assert.True(t, errors.Is(svc.PrepareExport(sess), ErrExportNotReady))

	_, err = svc.Click(ctx, sess, models.Point{X: 5, Y: 6}, selection("TeamA", "鈴木"))
	require.NoError(t, err)
	require.NoError(t, svc.PrepareExport(sess))

	rows, err := svc.Rows(sess)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "5", rows[0]["x_coord"])
	_, hasBatter := rows[0]["batter_LR"]
	assert.False(t, hasBatter, "schema v1 rows have no batter column")

	// Records exist but the player was deselected afterwards.
	_, err = svc.Select(ctx, sess, selection("TeamA", ""))
	require.NoError(t, err)
	assert.True(t, errors.Is(svc.PrepareExport(sess), ErrExportNotReady))
}

func TestSelectStoresResolvedSelection(t *testing.T) {
	svc, events := newService(t, models.SchemaV2)
	sess := svc.Session("")

	sel, err := svc.Select(context.Background(), sess, selection("TeamA", "鈴木"))
	require.NoError(t, err)
	assert.Equal(t, "左", sel.PlayerHandedness)
	assert.Equal(t, sel, sess.Selection())
	assert.Equal(t, []string{pubsub.EventSelectionChanged}, events.types())

	bad := selection("TeamA", "鈴木")
	bad.RunnerState = "満塁"
	_, err = svc.Select(context.Background(), sess, bad)
	assert.True(t, errors.Is(err, models.ErrInvalidSelection))
	assert.Equal(t, sel, sess.Selection(), "rejected selections are not stored")
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, _ := newService(t, models.SchemaV2)
	a := svc.Session("")
	b := svc.Session("")
	require.NotEqual(t, a.ID, b.ID)

	_, err := svc.Click(context.Background(), a, models.Point{X: 3, Y: 3}, selection("TeamA", "鈴木"))
	require.NoError(t, err)

	assert.Len(t, svc.Snapshot(a).Records, 1)
	assert.Empty(t, svc.Snapshot(b).Records)

	same, ok := svc.Lookup(a.ID)
	require.True(t, ok)
	assert.Same(t, a, same)
}

func TestNilCollaborators(t *testing.T) {
	reg := session.NewRegistry(session.Options{}, 0)
	svc := NewService(reg, nil, nil, 0)
	assert.Equal(t, models.SchemaV2, svc.Schema())

	sess := svc.Session("")
	res, err := svc.Click(context.Background(), sess, models.Point{X: 1, Y: 1}, selection("T", "P"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Empty(t, res.Record.PlayerHandedness)
}
