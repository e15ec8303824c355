package oci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_U_Normalize(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Ref       string
		Expected  string
		ExpectErr bool
	}{
		"docker-hub-short": {
			Ref:      "girder/covalic-metrics",
			Expected: "docker.io/girder/covalic-metrics:latest",
		},
		"docker-hub-tagged": {
			Ref:      "girder/covalic-metrics:v1.2",
			Expected: "docker.io/girder/covalic-metrics:v1.2",
		},
		"library": {
			Ref:      "python:3.12",
			Expected: "docker.io/library/python:3.12",
		},
		"registry": {
			Ref:      "registry.example.com:5000/team/scorer:latest",
			Expected: "registry.example.com:5000/team/scorer:latest",
		},
		"canonical": {
			Ref:      "girder/covalic-metrics@sha256:272a63ea0a75b63f6dc6e34bce0b8591c9fc15549a1298b3ee9e2685a38bff7e",
			Expected: "docker.io/girder/covalic-metrics@sha256:272a63ea0a75b63f6dc6e34bce0b8591c9fc15549a1298b3ee9e2685a38bff7e",
		},
		"uppercase": {
			Ref:       "Girder/Metrics",
			ExpectErr: true,
		},
		"empty": {
			Ref:       "",
			ExpectErr: true,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			mg := NewManager(Options{})
			ref, err := mg.Normalize(tt.Ref)

			if tt.ExpectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.Expected, ref)
			}
		})
	}
}
