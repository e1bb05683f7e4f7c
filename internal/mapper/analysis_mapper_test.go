package mapper

import (
	"testing"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSessionToEntity_Signals(t *testing.T) {
	m := NewAnalysisMapper()
	row := &model.AnalysisSession{
		Id:      uuid.New(),
		Status:  string(entity.SessionDraft),
		Signals: datatypes.JSON(`[{"kind":"competitor","text":"One-click checkout"}]`),
	}

	s, err := m.SessionToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, []entity.Signal{{Kind: "competitor", Text: "One-click checkout"}}, s.Signals)

	row.Signals = nil
	s, err = m.SessionToEntity(row)
	require.NoError(t, err)
	assert.Empty(t, s.Signals)
}

func TestSessionToEntity_CorruptSignals(t *testing.T) {
	row := &model.AnalysisSession{Id: uuid.New(), Signals: datatypes.JSON(`{"kind":`)}

	s, err := NewAnalysisMapper().SessionToEntity(row)
	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), row.Id.String())
}

func TestSynthesisToEntity_CorruptColumn(t *testing.T) {
	m := NewAnalysisMapper()
	row := &model.SynthesisResult{
		Id:        uuid.New(),
		SessionId: uuid.New(),
		Summary:   "ok",
		Citations: datatypes.JSON(`[{"title":`),
	}

	_, err := m.SynthesisToEntity(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "citations")

	row.Citations = nil
	res, err := m.SynthesisToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
}
