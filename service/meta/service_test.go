package meta

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"strings"
)

func TestServiceLoad(t *testing.T) {
	fs := afs.New()
	ctx := context.Background()
	err := fs.Upload(ctx, "mem://localhost/meta/exp.yaml", file.DefaultFileOsMode,
		strings.NewReader("dataset:\n  name: Task01\n  data_dir: ${env.GRIDRUN_TEST_DATA}\n"))
	assert.NoError(t, err)

	os.Setenv("GRIDRUN_TEST_DATA", "/data/task01")
	defer os.Unsetenv("GRIDRUN_TEST_DATA")

	service := New(fs, "mem://localhost/meta")

	var target struct {
		Dataset struct {
			Name    string `yaml:"name"`
			DataDir string `yaml:"data_dir"`
		} `yaml:"dataset"`
	}
	err = service.Load(ctx, "exp.yaml", &target)
	assert.NoError(t, err)
	assert.Equal(t, "Task01", target.Dataset.Name)
	assert.Equal(t, "/data/task01", target.Dataset.DataDir)

	ok, err := service.Exists(ctx, "exp.yaml")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.Exists(ctx, "missing.yaml")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceLoadAbsolute(t *testing.T) {
	fs := afs.New()
	ctx := context.Background()
	err := fs.Upload(ctx, "mem://localhost/other/run.yaml", file.DefaultFileOsMode,
		strings.NewReader("seed: 42\n"))
	assert.NoError(t, err)

	service := New(fs, "mem://localhost/meta")
	var target struct {
		Seed int `yaml:"seed"`
	}
	// absolute URL bypasses the base
	err = service.Load(ctx, "mem://localhost/other/run.yaml", &target)
	assert.NoError(t, err)
	assert.Equal(t, 42, target.Seed)
}

func TestServiceLoadMissing(t *testing.T) {
	service := New(afs.New(), "mem://localhost/empty")
	var target map[string]interface{}
	err := service.Load(context.Background(), "absent.yaml", &target)
	assert.Error(t, err)
}
