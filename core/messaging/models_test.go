package messaging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tripsync/core"
)

func TestNewComplaint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		nc      NewComplaint
		wantErr string
	}{
		{name: "ok", nc: NewComplaint{Category: CategoryLostFound, Description: "lost my bag"}},
		{name: "bad category", nc: NewComplaint{Category: "noise", Description: "x"}, wantErr: "category"},
		{name: "blank description", nc: NewComplaint{Category: CategoryOther, Description: "  "}, wantErr: "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Contains(t, core.UserMessage(err, "fallback"), tt.wantErr)
		})
	}
}

func TestRouteBroadcast_DefaultsToStudents(t *testing.T) {
	rb := &RouteBroadcast{RouteName: "R1", Content: "hello"}
	require.NoError(t, rb.Validate())
	assert.Equal(t, RecipientStudents, rb.RecipientType)

	rb.RecipientType = "teachers"
	assert.Error(t, rb.Validate())
}

func TestNewLeave_Validate(t *testing.T) {
	assert.NoError(t, NewLeave{Date: "2024-05-01", Reason: "wedding"}.Validate())
	assert.Error(t, NewLeave{Date: "01/05/2024", Reason: "wedding"}.Validate())
}

func TestComplaint_Decode(t *testing.T) {
	var c Complaint
	require.NoError(t, json.Unmarshal([]byte(`{
		"_id": "c1", "category": "bus_issue", "description": "AC broken",
		"status": "pending", "adminResponse": null, "submittedAt": "2024-02-10T09:00:00.5"
	}`), &c))
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "", c.AdminResponse)
	assert.Equal(t, 10, c.SubmittedAt.Day())
}
