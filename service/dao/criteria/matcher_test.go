package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediseg/gridrun/service/dao"
)

func TestMatch(t *testing.T) {
	attributes := map[string]string{"State": "running", "Launcher": "gridengine"}

	assert.True(t, Match(attributes, nil))
	assert.True(t, Match(attributes, []*dao.Parameter{dao.NewParameter("State", "running")}))
	assert.False(t, Match(attributes, []*dao.Parameter{dao.NewParameter("State", "queued")}))
	assert.True(t, Match(attributes, []*dao.Parameter{dao.NewParameter("State", "queued", "running")}))
	assert.True(t, Match(attributes, []*dao.Parameter{
		dao.NewParameter("State", "running"),
		dao.NewParameter("Launcher", "gridengine"),
	}))
	assert.False(t, Match(attributes, []*dao.Parameter{
		dao.NewParameter("State", "running"),
		dao.NewParameter("Launcher", "local"),
	}))
	// unknown parameter names do not filter
	assert.True(t, Match(attributes, []*dao.Parameter{dao.NewParameter("Owner", "alice")}))
}
