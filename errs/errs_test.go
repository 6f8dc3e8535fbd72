package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesSentinel(t *testing.T) {
	err := Domainf("z_src", -0.5, "redshift must be non-negative")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDomain))
	assert.False(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "z_src")
	assert.Contains(t, err.Error(), "redshift must be non-negative")
}

func TestConfigurationErrorMatchesSentinel(t *testing.T) {
	err := Configf("massdef", "bogus", "supported: mean, critical, virial")
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "bogus")
}

func TestPreconditionErrorEnumeratesMissing(t *testing.T) {
	err := Missingf("galaxy weights", "e1", "e2", "z")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Contains(t, err.Error(), "e1")
	assert.Contains(t, err.Error(), "e2")
	assert.Contains(t, err.Error(), "z")

	var pre *PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Len(t, pre.Missing, 3)
}

func TestCapabilityError(t *testing.T) {
	err := &CapabilityError{Op: "two-halo term", Backend: "flatlcdm"}
	assert.True(t, errors.Is(err, ErrCapability))
	assert.Contains(t, err.Error(), "two-halo term")

	var cap *CapabilityError
	require.True(t, errors.As(err, &cap))
	assert.Equal(t, "flatlcdm", cap.Backend)
}
