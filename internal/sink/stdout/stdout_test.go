package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/sink"
)

func testSnapshot(seq uint64) model.Snapshot {
	return model.Snapshot{
		Sequence:          seq,
		Alerts:            []model.Alert{{ID: 1, UserID: "u1", ThreatLevel: "critical", Description: strings.Repeat("d", 300)}},
		Incidents:         []model.Incident{},
		ThreatLevel:       0.03,
		ActiveThreatCount: 1,
		CriticalCount:     1,
		Sources:           map[string]model.SourceStatus{"alerts": {}},
		GeneratedAt:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestJSONLinePerSnapshot(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, sink.FormatJSON, sink.Full, false)
	require.NoError(t, s.Publish(context.Background(), testSnapshot(1)))
	require.NoError(t, s.Publish(context.Background(), testSnapshot(2)))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, float64(2), got["sequence"])
	assert.Equal(t, 0.03, got["derived_threat_level"])
}

func TestMinimalOmitsPayloads(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, sink.FormatJSON, sink.Minimal, false)
	require.NoError(t, s.Publish(context.Background(), testSnapshot(1)))

	var got model.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Empty(t, got.Alerts)
	assert.Equal(t, 1, got.CriticalCount)
	assert.Contains(t, got.Sources, "alerts")
}

func TestYAMLDocuments(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, sink.FormatYAML, sink.Standard, false)
	require.NoError(t, s.Publish(context.Background(), testSnapshot(1)))
	require.NoError(t, s.Publish(context.Background(), testSnapshot(2)))
	require.NoError(t, s.Close())

	dec := yaml.NewDecoder(&buf)
	var seqs []uint64
	for {
		var doc struct {
			Sequence uint64 `yaml:"sequence"`
			Alerts   []struct {
				Description string `yaml:"description"`
			} `yaml:"alerts"`
		}
		if err := dec.Decode(&doc); err != nil {
			break
		}
		seqs = append(seqs, doc.Sequence)
		require.Len(t, doc.Alerts, 1)
		assert.Len(t, doc.Alerts[0].Description, 203)
	}
	assert.Equal(t, []uint64{1, 2}, seqs)
}

func TestRegistered(t *testing.T) {
	var buf bytes.Buffer
	ctor, err := sink.Get("stdout")
	require.NoError(t, err)
	s, err := ctor(sink.Config{Writer: &buf, Format: sink.FormatJSON, Verbosity: sink.Full})
	require.NoError(t, err)
	require.NoError(t, s.Publish(context.Background(), testSnapshot(3)))
	assert.Contains(t, buf.String(), `"sequence":3`)
}
