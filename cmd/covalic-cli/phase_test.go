package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/client"
)

func Test_U_ReadPhaseDefinition(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		YAML           string
		ExpectedCreate client.Params
		ExpectedUpdate client.Params
		ExpectErr      bool
	}{
		"minimal": {
			YAML: "name: Training\n",
			ExpectedCreate: client.Params{
				"challengeId":  "chall",
				"name":         "Training",
				"description":  "",
				"instructions": "",
				"type":         "",
			},
		},
		"complete": {
			YAML: `
name: Final
type: segmentation
startDate: 2026-01-01T00:00:00Z
flags:
  active: true
  hideScores: false
metrics:
  dice:
    title: Dice
    weight: 0.5
scoreTask:
  dockerImage: girder/covalic-metrics
  dockerArgs: ["--gt", "$input{groundtruth}"]
meta:
  modality: CT
`,
			ExpectedCreate: client.Params{
				"challengeId":  "chall",
				"name":         "Final",
				"description":  "",
				"instructions": "",
				"type":         "segmentation",
				"startDate":    "2026-01-01T00:00:00Z",
				"active":       "true",
				"hideScores":   "false",
				"meta":         `{"modality":"CT"}`,
			},
			ExpectedUpdate: client.Params{
				"metrics":   `{"dice":{"title":"Dice","weight":0.5}}`,
				"scoreTask": `{"dockerImage":"girder/covalic-metrics","dockerArgs":["--gt","$input{groundtruth}"]}`,
			},
		},
		"missing-name": {
			YAML:      "type: segmentation\n",
			ExpectErr: true,
		},
		"unknown-flag": {
			YAML:      "name: x\nflags:\n  frozen: true\n",
			ExpectErr: true,
		},
		"unknown-field": {
			YAML:      "name: x\nowner: me\n",
			ExpectErr: true,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			def, err := readPhaseDefinition(strings.NewReader(tt.YAML))
			if tt.ExpectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			create, err := def.createParams("chall")
			require.NoError(t, err)
			assert.Equal(t, tt.ExpectedCreate, create)

			update, err := def.updateParams()
			require.NoError(t, err)
			assert.Equal(t, tt.ExpectedUpdate, update)
		})
	}
}
