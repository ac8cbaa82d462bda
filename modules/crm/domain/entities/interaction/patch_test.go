package interaction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
)

func TestBuildPatch_Whitelist(t *testing.T) {
	t.Parallel()

	statusID := uuid.New()
	p := interaction.BuildPatch(map[string]any{
		"status":      "relance",
		"status_id":   statusID.String(),
		"notes":       "called back",
		"created_by":  "attacker",  // not whitelisted
		"timeline":    []any{"x"},  // not whitelisted
		"agency_id":   "other",     // not whitelisted
	})

	a := p.Assignments()
	assert.Equal(t, "relance", a["status"])
	assert.Equal(t, statusID, a["status_id"])
	assert.Equal(t, "called back", a["notes"])
	assert.NotContains(t, a, "created_by")
	assert.NotContains(t, a, "timeline")
	assert.NotContains(t, a, "agency_id")
}

func TestBuildPatch_AbsentVsNullVsInvalid(t *testing.T) {
	t.Parallel()

	p := interaction.BuildPatch(map[string]any{
		"order_ref":          nil,       // explicit null: clears
		"status_is_terminal": "yes",     // wrong type: dropped
		"status_id":          "not-a-uuid",
		"reminder_at":        "soonish", // not RFC3339: dropped
	})

	a := p.Assignments()
	require.Contains(t, a, "order_ref")
	assert.Nil(t, a["order_ref"])
	assert.NotContains(t, a, "status_is_terminal")
	assert.NotContains(t, a, "status_id")
	assert.NotContains(t, a, "reminder_at")
	// "notes" was never submitted: absent, left untouched.
	assert.NotContains(t, a, "notes")
}

func TestBuildPatch_TimeAndFamilies(t *testing.T) {
	t.Parallel()

	p := interaction.BuildPatch(map[string]any{
		"reminder_at":   "2026-09-01T10:00:00Z",
		"mega_families": []any{"auto", "habitation"},
	})

	a := p.Assignments()
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), a["reminder_at"])
	assert.Equal(t, []string{"auto", "habitation"}, a["mega_families"])

	// A families array with a non-string member is dropped whole.
	p = interaction.BuildPatch(map[string]any{
		"mega_families": []any{"auto", 7},
	})
	assert.NotContains(t, p.Assignments(), "mega_families")
}

func TestPatch_Apply(t *testing.T) {
	t.Parallel()

	orderRef := "CMD-42"
	i := interaction.New(uuid.New(),
		interaction.WithOrderRef(&orderRef),
		interaction.WithStatusIsTerminal(false),
	)

	p := interaction.BuildPatch(map[string]any{
		"order_ref":          nil,
		"notes":              "renewal discussed",
		"status_is_terminal": true,
	})
	p.Apply(i)

	assert.Nil(t, i.OrderRef())
	require.NotNil(t, i.Notes())
	assert.Equal(t, "renewal discussed", *i.Notes())
	assert.True(t, i.StatusIsTerminal())
}
