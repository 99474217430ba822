package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitError(t *testing.T) {
	base := errors.New("snapmig: version already exists")
	err := VersionError("generating migrations", base)

	assert.Equal(t, "generating migrations: snapmig: version already exists", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "no cause", GeneralError("no cause", nil).Error())
}

func TestReport(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{ConfigError("config", nil), ExitConfig},
		{VersionError("version", nil), ExitVersion},
		{DBConnectError("connect", nil), ExitDBConnect},
		{OutputError("write", nil), ExitOutput},
		{ObjectError("object", nil), ExitObject},
		{GeneralError("other", nil), ExitGeneral},
		{errors.New("plain"), ExitGeneral},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		assert.Equal(t, tt.code, report(&buf, tt.err), tt.err.Error())
		assert.Equal(t, "Error: "+tt.err.Error()+"\n", buf.String())
	}
}
