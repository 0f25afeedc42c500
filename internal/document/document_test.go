package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStorage is an in-memory Storage with injectable failures
type memoryStorage struct {
	data     []byte
	loadErr  error
	storeErr error
	loads    int
	stores   int
}

func (m *memoryStorage) Name() string { return "memory-test" }

func (m *memoryStorage) Load(ctx context.Context) ([]byte, error) {
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return nil, ErrNotFound
	}
	return m.data, nil
}

func (m *memoryStorage) Store(ctx context.Context, data []byte) error {
	m.stores++
	if m.storeErr != nil {
		return m.storeErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func TestDocument_SaveAndRead(t *testing.T) {
	storage := &memoryStorage{}
	doc := FromMap(map[string]interface{}{
		"trader": map[string]interface{}{"enabled": true},
	}, storage)

	require.NoError(t, doc.Save())
	assert.Equal(t, 1, storage.stores)

	reloaded := New(storage)
	require.NoError(t, reloaded.Read(true, false))
	section, ok := reloaded.Section(SectionTrader)
	require.True(t, ok)
	assert.Equal(t, true, section[OptionEnabled])
}

func TestDocument_SaveFailure(t *testing.T) {
	storage := &memoryStorage{storeErr: errors.New("disk full")}
	doc := FromMap(map[string]interface{}{}, storage)

	err := doc.Save()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSaveFailed))

	err = FromMap(nil, nil).Save()
	assert.True(t, errors.Is(err, ErrSaveFailed))
}

func TestDocument_ReadRaisesWhenAsked(t *testing.T) {
	doc := New(&memoryStorage{loadErr: errors.New("permission denied")})

	err := doc.Read(true, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadFailed))
}

func TestDocument_ReadFallsBackToDefaults(t *testing.T) {
	defaults := &memoryStorage{data: []byte(`{"trader-simulator":{"enabled":true},"trader":{"enabled":false}}`)}
	doc := FromMap(map[string]interface{}{"stale": true}, &memoryStorage{data: []byte(`not json`)}, WithDefaults(defaults))

	require.NoError(t, doc.Read(false, true))

	assert.NotContains(t, doc.Config(), "stale")
	sim, ok := doc.Section(SectionSimulator)
	require.True(t, ok)
	assert.Equal(t, true, sim[OptionEnabled])
}

func TestDocument_ReadWithoutUsableDefaultsKeepsConfig(t *testing.T) {
	doc := FromMap(map[string]interface{}{"kept": true},
		&memoryStorage{loadErr: errors.New("gone")},
		WithDefaults(&memoryStorage{loadErr: errors.New("gone too")}))

	err := doc.Read(false, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadFailed))
	assert.Equal(t, true, doc.Config()["kept"])
}

func TestDocument_ReadFillsMissingFields(t *testing.T) {
	storage := &memoryStorage{data: []byte(`{"trader":{"enabled":true}}`)}
	defaults := &memoryStorage{data: []byte(`{"trader":{"enabled":false},"trader-simulator":{"enabled":false}}`)}

	doc := New(storage, WithDefaults(defaults))
	require.NoError(t, doc.Read(true, true))

	trader, _ := doc.Section(SectionTrader)
	assert.Equal(t, true, trader[OptionEnabled])
	_, ok := doc.Section(SectionSimulator)
	assert.True(t, ok)

	plain := New(storage, WithDefaults(defaults))
	require.NoError(t, plain.Read(true, false))
	_, ok = plain.Section(SectionSimulator)
	assert.False(t, ok)
}

func TestDocument_EnsureSection(t *testing.T) {
	doc := FromMap(map[string]interface{}{"trader": "broken"}, nil)

	section := doc.EnsureSection(SectionTrader)
	section[OptionEnabled] = false

	got, ok := doc.Section(SectionTrader)
	require.True(t, ok)
	assert.Equal(t, false, got[OptionEnabled])
}

func TestFileStorage_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			doc := FromMap(map[string]interface{}{
				"exchanges": map[string]interface{}{
					"binance": map[string]interface{}{"api-key": "secret"},
				},
				"trader": map[string]interface{}{"enabled": false},
			}, NewFileStorage(path))

			require.NoError(t, doc.Save())
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(context.Background(), NewFileStorage(path))
			require.NoError(t, err)
			assert.Equal(t, doc.Config(), loaded.Config())
		})
	}
}

func TestFileStorage_MissingFile(t *testing.T) {
	_, err := NewFileStorage(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
}
