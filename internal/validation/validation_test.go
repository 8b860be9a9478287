package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ugcboard/internal/errors"
)

type sample struct {
	Source string `json:"source" validate:"oneof=sheets sqlite postgres"`
	Limit  int    `json:"limit" validate:"min=1,max=50"`
	Start  string `json:"date_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	require.NoError(t, v.Validate(sample{Source: "sheets", Limit: 10, Start: "2024-10-01"}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(sample{Source: "excel", Limit: 0, Start: "10/01/2024"})
	require.Error(t, err)

	var uErr *errors.UGCError
	require.ErrorAs(t, err, &uErr)
	require.Equal(t, errors.ErrInvalidRequest, uErr.Code)

	fields, ok := uErr.Details["fields"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "must be one of: sheets sqlite postgres", fields["source"])
	require.Equal(t, "must be at least 1", fields["limit"])
	require.Equal(t, "must match layout 2006-01-02", fields["date_start"])
	require.Equal(t, "date_start must match layout 2006-01-02; limit must be at least 1; source must be one of: sheets sqlite postgres", uErr.Message)
}
