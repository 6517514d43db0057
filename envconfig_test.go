package kernel

import (
	"os"
	"testing"
)

type envconfigDBConfig struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port int    `env:"PORT" envDefault:"5432"`
}

func TestApplyEnvPopulatesAddressableStruct(t *testing.T) {
	os.Setenv("HOST", "db.internal")
	os.Setenv("PORT", "6543")
	defer os.Unsetenv("HOST")
	defer os.Unsetenv("PORT")

	r := NewResource("envconfig.db", func(ctx ResourceInitContext, c envconfigDBConfig, d Deps) (envconfigDBConfig, error) {
		return c, nil
	}).With(envconfigDBConfig{})

	if err := applyEnv("", r); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if r.config.Host != "db.internal" || r.config.Port != 6543 {
		t.Fatalf("expected env values to populate config, got %+v", r.config)
	}
}

func TestApplyEnvHonorsPrefix(t *testing.T) {
	os.Setenv("APP_HOST", "prefixed.internal")
	defer os.Unsetenv("APP_HOST")

	r := NewResource("envconfig.prefixed", func(ctx ResourceInitContext, c envconfigDBConfig, d Deps) (envconfigDBConfig, error) {
		return c, nil
	}).With(envconfigDBConfig{})

	if err := applyEnv("APP_", r); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if r.config.Host != "prefixed.internal" {
		t.Fatalf("expected prefixed env value, got %q", r.config.Host)
	}
}

func TestApplyEnvEmptyStructConfigIsNoop(t *testing.T) {
	r := NewResource("envconfig.nilcfg", func(ctx ResourceInitContext, c struct{}, d Deps) (struct{}, error) {
		return c, nil
	})
	if err := applyEnv("", r); err != nil {
		t.Fatalf("expected an empty struct config to be a no-op, got %v", err)
	}
}

func TestLoadEnvConfigWalksDependencyGraph(t *testing.T) {
	os.Setenv("HOST", "walked.internal")
	defer os.Unsetenv("HOST")

	leaf := NewResource("envconfig.leaf", func(ctx ResourceInitContext, c envconfigDBConfig, d Deps) (envconfigDBConfig, error) {
		return c, nil
	}).With(envconfigDBConfig{})
	root := NewResource("envconfig.root", func(ctx ResourceInitContext, c struct{}, d Deps) (int, error) {
		return 1, nil
	}, WithResourceDeps[struct{}, int](Dependencies{"leaf": DepOn(leaf)}))

	if err := loadEnvConfig("", root); err != nil {
		t.Fatalf("loadEnvConfig failed: %v", err)
	}
	if leaf.config.Host != "walked.internal" {
		t.Fatalf("expected the leaf resource reached via deps to be populated, got %+v", leaf.config)
	}
}

func TestFromEnvSetsRunConfig(t *testing.T) {
	var c runConfig
	FromEnv("APP_")(&c)
	if !c.loadEnv {
		t.Fatal("expected FromEnv to set loadEnv true")
	}
	if c.envPrefix != "APP_" {
		t.Fatalf("expected envPrefix APP_, got %q", c.envPrefix)
	}
}
