package caseops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCaseData(t *testing.T) {
	t.Run("empty path yields nil", func(t *testing.T) {
		data, err := readCaseData("")
		assert.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("json object", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "appeal.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"benefitCode":"002","appeal":{"mrnDetails":{"dwpIssuingOffice":"1"}}}`), 0644))

		data, err := readCaseData(path)
		require.NoError(t, err)
		assert.Equal(t, "002", data["benefitCode"])
		assert.IsType(t, map[string]any{}, data["appeal"])
	})

	t.Run("non-object rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "list.json")
		require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0644))

		_, err := readCaseData(path)
		assert.ErrorContains(t, err, "must be a JSON object")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readCaseData(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestBenefitData(t *testing.T) {
	t.Run("empty name yields nil", func(t *testing.T) {
		data, err := benefitData("")
		assert.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("welsh pip", func(t *testing.T) {
		data, err := benefitData("welshpip")
		require.NoError(t, err)
		assert.Equal(t, "002", data["benefitCode"])
		assert.Equal(t, "Yes", data["languagePreferenceWelsh"])
		appeal := data["appeal"].(map[string]any)
		assert.Equal(t, "PIP", appeal["benefitType"].(map[string]any)["code"])
	})

	t.Run("esa", func(t *testing.T) {
		data, err := benefitData("ESA")
		require.NoError(t, err)
		assert.Equal(t, "051", data["benefitCode"])
		assert.Equal(t, "No", data["languagePreferenceWelsh"])
	})

	t.Run("unknown benefit lists presets", func(t *testing.T) {
		_, err := benefitData("DLA")
		assert.ErrorContains(t, err, "ESA, PIP, UC, WELSHPIP")
	})
}

func TestMergeCaseData(t *testing.T) {
	preset, err := benefitData("PIP")
	require.NoError(t, err)

	merged := mergeCaseData(preset, map[string]any{"benefitCode": "999", "appellantName": "Jane Doe"})
	assert.Equal(t, "999", merged["benefitCode"], "--data wins over the preset")
	assert.Equal(t, "Jane Doe", merged["appellantName"])
	assert.Contains(t, merged, "appeal")

	only := map[string]any{"x": 1}
	assert.Equal(t, only, mergeCaseData(nil, only))
	assert.Nil(t, mergeCaseData(nil, nil))
}
