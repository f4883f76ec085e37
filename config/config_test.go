package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadConfig(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		unsetenv(t, "ENV", envConfigFile,
			"EVENTHUB_SERVER_PORT", "EVENTHUB_DATABASE__HOST", "EVENTHUB_DOCSTORE__DRIVER",
			"EVENTHUB_AUTH__TOKEN_TTL", "EVENTHUB_MQ__CHANNEL")

		Convey("When nothing overrides the defaults", func() {
			cfg, err := LoadConfig()

			Convey("Then the defaults are returned", func() {
				So(err, ShouldBeNil)
				So(cfg.ServerPort, ShouldEqual, 8080)
				So(cfg.Docstore.Driver, ShouldEqual, "postgres")
				So(cfg.Database.Port, ShouldEqual, 5432)
				So(cfg.MQ.Channel, ShouldEqual, "event-changes")
				So(cfg.Auth.TokenTTL, ShouldEqual, 24*time.Hour)
			})
		})

		Convey("When nested keys are set through the environment", func() {
			t.Setenv("EVENTHUB_SERVER_PORT", "9090")
			t.Setenv("EVENTHUB_DATABASE__HOST", "db.internal")
			t.Setenv("EVENTHUB_DOCSTORE__DRIVER", "memory")
			t.Setenv("EVENTHUB_AUTH__TOKEN_TTL", "2h")
			cfg, err := LoadConfig()

			Convey("Then they override the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.ServerPort, ShouldEqual, 9090)
				So(cfg.Database.Host, ShouldEqual, "db.internal")
				So(cfg.Docstore.Driver, ShouldEqual, "memory")
				So(cfg.Auth.TokenTTL, ShouldEqual, 2*time.Hour)
			})
		})

		Convey("When a YAML file is named", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			data := "storage:\n  driver: minio\n  minio:\n    bucket: photos\nmq:\n  driver: rabbitmq\n"
			So(os.WriteFile(path, []byte(data), 0o600), ShouldBeNil)
			t.Setenv(envConfigFile, path)
			t.Setenv("EVENTHUB_MQ__CHANNEL", "changes-test")
			cfg, err := LoadConfig()

			Convey("Then the file and environment are layered over the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Storage.Driver, ShouldEqual, "minio")
				So(cfg.Storage.Minio.Bucket, ShouldEqual, "photos")
				So(cfg.MQ.Driver, ShouldEqual, "rabbitmq")
				So(cfg.MQ.Channel, ShouldEqual, "changes-test")
			})
		})

		Convey("When the environment names an unknown driver", func() {
			t.Setenv("EVENTHUB_DOCSTORE__DRIVER", "mongo")
			_, err := LoadConfig()

			Convey("Then loading fails validation", func() {
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

// unsetenv clears keys for the rest of the test and restores them afterwards.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "memory docstore", mutate: func(c *Config) { c.Docstore.Driver = "memory" }},
		{name: "firestore without project", mutate: func(c *Config) { c.Docstore.Driver = "firestore" }, wantErr: true},
		{name: "firestore with project", mutate: func(c *Config) {
			c.Docstore.Driver = "firestore"
			c.Firestore.ProjectID = "p"
		}},
		{name: "bad port", mutate: func(c *Config) { c.ServerPort = 70000 }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Driver = "s3" }, wantErr: true},
		{name: "unknown mq", mutate: func(c *Config) { c.MQ.Driver = "kafka" }, wantErr: true},
		{name: "zero token ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
