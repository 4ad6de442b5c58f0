package logx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.77:5123", "203.0.113.0"},
		{"127.0.0.1:80", "127.0.0.1"},
		{"[2001:db8:85a3::8a2e:370:7334]:443", "2001:db8:85a3::"},
		{"10.1.2.3", "10.1.2.0"},
		{"[2001:db8:1:2:3:4:5:6]:80", "2001:db8:1:2::"},
		{"::ffff:198.51.100.9", "198.51.100.0"},
		{"garbage", "unknown_ip"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, anonymizeIP(tt.in), tt.in)
	}
}

func TestInfoWritesKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLoggerTo(&buf, false)
	t.Cleanup(func() { InitGlobalLoggerTo(&bytes.Buffer{}, false) })

	Info("room created", "room_id", "doc-1", "members", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "room created", entry["message"])
	assert.Equal(t, "doc-1", entry["room_id"])
	assert.EqualValues(t, 1, entry["members"])
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLoggerTo(&buf, false)
	t.Cleanup(func() { InitGlobalLoggerTo(&bytes.Buffer{}, false) })

	Warn("dangling", "only_key")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "dangling", entry["message"])
	assert.NotContains(t, entry, "only_key")
}

func TestRequestLoggerDemotesProbes(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLoggerTo(&buf, false)
	t.Cleanup(func() { InitGlobalLoggerTo(&bytes.Buffer{}, false) })

	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, buf.Len(), "probe should be logged below info level")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Contains(t, buf.String(), "Request completed")
}
