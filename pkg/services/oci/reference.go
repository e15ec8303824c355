package oci

import (
	"fmt"

	"github.com/distribution/reference"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/pkg/errors"
)

// Normalize returns the fully-qualified form of an image reference
// (e.g. "docker.io/girder/covalic-metrics:latest").
// When the manager resolves digests, tagged references are pinned to
// their current digest ("docker.io/girder/covalic-metrics@sha256:...").
func (mg *Manager) Normalize(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", errors.Wrapf(err, "invalid image reference %q", ref)
	}
	named = reference.TagNameOnly(named)

	// A digest always prevails, no need to contact the registry
	if canonical, ok := named.(reference.Canonical); ok {
		return fmt.Sprintf("%s@%s", canonical.Name(), canonical.Digest()), nil
	}
	if !mg.opts.Resolve {
		return named.String(), nil
	}

	dig, err := mg.digest(named.String())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%s", named.Name(), dig), nil
}

func (mg *Manager) digest(ref string) (string, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if dig, ok := mg.digCache[ref]; ok {
		return dig, nil
	}

	opts := []crane.Option{}
	if mg.opts.Insecure {
		opts = append(opts, crane.Insecure)
	}
	if mg.opts.Username != "" && mg.opts.Password != "" {
		opts = append(opts, crane.WithAuth(&authn.Basic{
			Username: mg.opts.Username,
			Password: mg.opts.Password,
		}))
	}
	dig, err := crane.Digest(ref, opts...)
	if err != nil {
		return "", errors.Wrapf(err, "resolving digest of %s", ref)
	}

	mg.digCache[ref] = dig
	return dig, nil
}
