package app_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"bpmnstudio/internal/adapter/memory"
	"bpmnstudio/internal/app"
	"bpmnstudio/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDiagramRepo delegates to a memory store unless a function field overrides a call.
type mockDiagramRepo struct {
	*memory.DB
	ownsFn   func(ctx context.Context, userID, id int64) (bool, error)
	updateFn func(ctx context.Context, userID, id int64, name, xml string, now time.Time) (int64, error)
	createFn func(ctx context.Context, userID int64, name, xml string, now time.Time) (int64, error)
}

func (m *mockDiagramRepo) OwnsDiagram(ctx context.Context, userID, id int64) (bool, error) {
	if m.ownsFn != nil {
		return m.ownsFn(ctx, userID, id)
	}
	return m.DB.OwnsDiagram(ctx, userID, id)
}

func (m *mockDiagramRepo) UpdateDiagram(ctx context.Context, userID, id int64, name, xml string, now time.Time) (int64, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, name, xml, now)
	}
	return m.DB.UpdateDiagram(ctx, userID, id, name, xml, now)
}

func (m *mockDiagramRepo) CreateDiagram(ctx context.Context, userID int64, name, xml string, now time.Time) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, name, xml, now)
	}
	return m.DB.CreateDiagram(ctx, userID, name, xml, now)
}

const (
	userU int64 = 1
	userV int64 = 2
)

func newDiagramService(t *testing.T) (*app.DiagramService, *memory.DB) {
	t.Helper()
	db := memory.New()
	return app.NewDiagramService(db, zerolog.Nop()), db
}

func raw(s string) *string { return &s }

func saveReq(name, xml string, rawID *string, mode string) domain.SaveRequest {
	return domain.SaveRequest{
		Name: name,
		XML:  xml,
		ID:   domain.ParseDiagramID(rawID),
		Mode: domain.ParseSaveMode(mode),
	}
}

func TestSave_Scenarios(t *testing.T) {
	ctx := context.Background()
	svc, db := newDiagramService(t)

	// new diagram without id
	first, err := svc.Save(ctx, userU, saveReq("Flow A", "<bpmn/>", nil, "save"))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotZero(t, first.ID)

	before, err := db.GetDiagram(ctx, userU, first.ID)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	// same user updates in place
	idStr := raw("  " + strconv.FormatInt(first.ID, 10) + " ")
	second, err := svc.Save(ctx, userU, saveReq("Flow A v2", "<bpmn2/>", idStr, "save"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)

	after, err := db.GetDiagram(ctx, userU, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flow A v2", after.Name)
	assert.Equal(t, "<bpmn2/>", after.XML)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, userU, after.UserID)

	// another user cannot touch it
	_, err = svc.Save(ctx, userV, saveReq("Flow A v2", "<bpmn2/>", idStr, "save"))
	require.ErrorIs(t, err, domain.ErrDiagramNotFoundOrNotOwned)
	var own *domain.DiagramOwnershipError
	require.True(t, errors.As(err, &own))
	assert.True(t, own.OwnedByOther)

	// save-as always copies
	third, err := svc.Save(ctx, userU, saveReq("Copy", "<copy/>", idStr, "save_as"))
	require.NoError(t, err)
	assert.True(t, third.Created)
	assert.NotEqual(t, first.ID, third.ID)
	unchanged, _ := db.GetDiagram(ctx, userU, first.ID)
	assert.Equal(t, "Flow A v2", unchanged.Name)

	// blank id creates
	fourth, err := svc.Save(ctx, userU, saveReq("Blank", "<b/>", raw("  "), "save"))
	require.NoError(t, err)
	assert.True(t, fourth.Created)

	list, err := svc.List(ctx, userU)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	vList, err := svc.List(ctx, userV)
	require.NoError(t, err)
	assert.Empty(t, vList)
}

func TestSave_MalformedIDsAlwaysCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newDiagramService(t)

	seen := map[int64]bool{}
	for _, r := range []*string{nil, raw(""), raw(" \t"), raw("abc"), raw("null"), raw("undefined"), raw("1.0"), raw("0x10")} {
		res, err := svc.Save(ctx, userU, saveReq("n", "<x/>", r, "save"))
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.False(t, seen[res.ID], "ids must be fresh")
		seen[res.ID] = true
	}
}

func TestSave_NonexistentNumericIDFails(t *testing.T) {
	ctx := context.Background()
	svc, db := newDiagramService(t)

	_, err := svc.Save(ctx, userU, saveReq("n", "<x/>", raw("999"), "save"))
	require.ErrorIs(t, err, domain.ErrDiagramNotFoundOrNotOwned)
	var own *domain.DiagramOwnershipError
	require.ErrorAs(t, err, &own)
	assert.False(t, own.OwnedByOther)

	list, _ := db.ListDiagrams(ctx, userU)
	assert.Empty(t, list, "a failed save must not create")
}

func TestSave_IdenticalContentStillUpdates(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	id, _ := db.CreateDiagram(ctx, userU, "same", "<same/>", time.Now())

	calls := 0
	repo := &mockDiagramRepo{
		DB: db,
		updateFn: func(ctx context.Context, userID, gotID int64, name, xml string, now time.Time) (int64, error) {
			calls++
			return 0, nil
		},
	}
	svc := app.NewDiagramService(repo, zerolog.Nop())

	res, err := svc.Save(ctx, userU, domain.SaveRequest{Name: "same", XML: "<same/>", ID: &id, Mode: domain.SaveModeSave})
	require.NoError(t, err)
	assert.Equal(t, domain.SaveResult{ID: id, Created: false}, res)
	assert.Equal(t, 1, calls)
}

func TestSave_RowVanishesBetweenCheckAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	id, _ := db.CreateDiagram(ctx, userU, "n", "<x/>", time.Now())

	repo := &mockDiagramRepo{
		DB: db,
		updateFn: func(ctx context.Context, userID, gotID int64, name, xml string, now time.Time) (int64, error) {
			_, _ = db.DeleteDiagram(ctx, userID, gotID)
			return 0, nil
		},
	}
	svc := app.NewDiagramService(repo, zerolog.Nop())

	_, err := svc.Save(ctx, userU, domain.SaveRequest{Name: "n", XML: "<x/>", ID: &id, Mode: domain.SaveModeSave})
	require.ErrorIs(t, err, domain.ErrDiagramNotFoundOrNotOwned)
}

func TestSave_StorageErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	id := int64(5)

	repo := &mockDiagramRepo{
		DB:       memory.New(),
		ownsFn:   func(context.Context, int64, int64) (bool, error) { return false, boom },
		createFn: func(context.Context, int64, string, string, time.Time) (int64, error) { return 0, boom },
	}
	svc := app.NewDiagramService(repo, zerolog.Nop())

	_, err := svc.Save(ctx, userU, domain.SaveRequest{ID: &id, Mode: domain.SaveModeSave})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrDiagramNotFoundOrNotOwned)

	_, err = svc.Save(ctx, userU, domain.SaveRequest{Mode: domain.SaveModeSave})
	require.ErrorIs(t, err, boom)
}

func TestSave_UnknownModeWithIDIsUnexpected(t *testing.T) {
	svc, _ := newDiagramService(t)
	id := int64(1)

	_, err := svc.Save(context.Background(), userU, domain.SaveRequest{ID: &id, Mode: domain.SaveMode("overwrite")})
	require.ErrorIs(t, err, domain.ErrUnexpectedState)
}

func TestCRUD_CrossUserIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newDiagramService(t)

	res, err := svc.Save(ctx, userU, saveReq("Mine", "<m/>", nil, "save"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, userV, res.ID)
	assert.ErrorIs(t, err, domain.ErrDiagramNotFound)
	assert.ErrorIs(t, svc.Rename(ctx, userV, res.ID, "x"), domain.ErrDiagramNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, userV, res.ID), domain.ErrDiagramNotFound)

	_, err = svc.Get(ctx, userU, res.ID+1000)
	assert.ErrorIs(t, err, domain.ErrDiagramNotFound)

	d, err := svc.Get(ctx, userU, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", d.Name)
}

func TestCRUD_GetIsStable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newDiagramService(t)
	xml := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<bpmn:definitions id=\"Defs_1\">流程</bpmn:definitions>\n"

	res, err := svc.Save(ctx, userU, saveReq("x", xml, nil, "save"))
	require.NoError(t, err)

	a, err := svc.Get(ctx, userU, res.ID)
	require.NoError(t, err)
	b, err := svc.Get(ctx, userU, res.ID)
	require.NoError(t, err)
	assert.Equal(t, xml, a.XML)
	assert.Equal(t, a.XML, b.XML)
}

func TestCRUD_RenameAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newDiagramService(t)

	res, err := svc.Save(ctx, userU, saveReq("Old", "<x/>", nil, "save"))
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, userU, res.ID, "New"))
	d, err := svc.Get(ctx, userU, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", d.Name)
	assert.Equal(t, "<x/>", d.XML)

	require.NoError(t, svc.Delete(ctx, userU, res.ID))
	assert.ErrorIs(t, svc.Delete(ctx, userU, res.ID), domain.ErrDiagramNotFound)
}
