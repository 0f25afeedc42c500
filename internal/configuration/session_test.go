package configuration

import (
	"bytes"
	"path/filepath"
	"testing"

	"tradebot-config/internal/document"
	"tradebot-config/internal/logging"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StartRegistersCheckedDocument(t *testing.T) {
	storage := document.NewFileStorage(filepath.Join(t.TempDir(), "config.json"))
	doc := document.FromMap(map[string]interface{}{
		document.SectionTrader:    map[string]interface{}{document.OptionEnabled: true},
		document.SectionSimulator: map[string]interface{}{document.OptionEnabled: true},
	}, storage)

	logger := logging.NewWithWriter(&bytes.Buffer{}, &logging.Config{Level: "DEBUG"})
	checker := NewHealthChecker(logger, &fakeEncryptor{}, nil)
	session := NewSession(doc, checker, NewManager(zerolog.Nop()), false)

	report, err := session.Start()
	require.NoError(t, err)
	assert.True(t, report.SimulatorDisabled)
	assert.True(t, report.Saved)

	assert.Equal(t, []string{GlobalConfigKey, document.SectionTrader, document.SectionSimulator}, session.Keys(), "keys sort lexically")

	startup, err := session.Startup(GlobalConfigKey, true)
	require.NoError(t, err)
	sim := startup.(map[string]interface{})[document.SectionSimulator].(map[string]interface{})
	assert.Equal(t, false, sim[document.OptionEnabled], "snapshots are taken after the health check")

	edited, err := session.Edited(document.SectionTrader, false)
	require.NoError(t, err)
	edited.(map[string]interface{})[document.OptionEnabled] = false

	trader, _ := session.Document().Section(document.SectionTrader)
	assert.Equal(t, true, trader[document.OptionEnabled], "edited copies do not touch the live document")

	again, err := session.Check()
	require.NoError(t, err)
	assert.False(t, again.ShouldReplaceConfig)
}

func TestSession_CheckModeOverridesBacktesting(t *testing.T) {
	storage := document.NewFileStorage(filepath.Join(t.TempDir(), "config.json"))
	doc := document.FromMap(map[string]interface{}{
		document.SectionTrader:    map[string]interface{}{document.OptionEnabled: false},
		document.SectionSimulator: map[string]interface{}{document.OptionEnabled: false},
	}, storage)

	logger := &recordingLogger{}
	session := NewSession(doc, NewHealthChecker(logger, &fakeEncryptor{}, nil), NewManager(zerolog.Nop()), true)
	assert.True(t, session.InBacktesting())

	report, err := session.Check()
	require.NoError(t, err)
	assert.False(t, report.NoActiveTrader)
	assert.Empty(t, logger.errors)

	report, err = session.CheckMode(false)
	require.NoError(t, err)
	assert.True(t, report.NoActiveTrader)
	assert.Len(t, logger.errors, 1)
}
