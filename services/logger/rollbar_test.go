package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/user"
)

func TestRollbarLogger(t *testing.T) {
	local, hook := test.NewNullLogger()
	local.SetLevel(logrus.DebugLevel)
	logger := NewRollbarLogger(local, &core.Config{AppName: "EAD", Env: "TEST", Debug: true})

	usr := user.User{ID: "42", Username: "ana", Email: "ana@test.cd"}
	err := errors.New("boom")

	logger.Error("querying disciplines", err, usr, map[string]interface{}{"discipline_id": "d1"})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "querying disciplines", entry.Message)
	assert.Equal(t, err, entry.Data[logrus.ErrorKey])
	assert.Equal(t, "42", entry.Data["user_id"])
	assert.Equal(t, "d1", entry.Data["discipline_id"])
	assert.Contains(t, entry.Data["stack"], "boom")

	logger.Warn("video declared as \"vimeo\" resolved to \"youtube\"", "extra arg")
	entry = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "extra arg", entry.Data["extra"])
	assert.NotContains(t, entry.Data, "user_id")

	logger.Debug("fetching video thumbnail")
	logger.Info("server started")
	assert.Len(t, hook.AllEntries(), 4)
}
