package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/podium/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.UpstreamMode, convey.ShouldEqual, config.ModePoll)
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 15_000)
				convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 10_000)
				convey.So(cfg.RosterTTLHours, convey.ShouldEqual, 24)
				convey.So(cfg.MinVisible, convey.ShouldEqual, 10)
				convey.So(cfg.ReconnectFloorMS, convey.ShouldEqual, 1_000)
				convey.So(cfg.ReconnectCeilingMS, convey.ShouldEqual, 30_000)
				convey.So(cfg.SnapshotEnabled, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PODIUM_ADDR", ":8080")
			_ = os.Setenv("PODIUM_UPSTREAM_MODE", "sse")
			_ = os.Setenv("PODIUM_MIN_VISIBLE", "15")
			_ = os.Setenv("PODIUM_CHANGE_EVENT_TTL_MS", "4000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.UpstreamMode, convey.ShouldEqual, config.ModeSSE)
				convey.So(cfg.MinVisible, convey.ShouldEqual, 15)
				convey.So(cfg.ChangeEventTTLMS, convey.ShouldEqual, 4000)
				// Untouched fields keep their defaults.
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 15_000)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()
			dir := t.TempDir()
			path := filepath.Join(dir, "podium.yaml")
			yaml := "addr: \":7070\"\nupstream_url: \"http://example.test/board\"\nmin_visible: 12\nsnapshot_enabled: false\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("PODIUM_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.UpstreamURL, convey.ShouldEqual, "http://example.test/board")
				convey.So(cfg.MinVisible, convey.ShouldEqual, 12)
				convey.So(cfg.SnapshotEnabled, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When env vars and file are both set", func() {
			clearConfigEnvVars()
			dir := t.TempDir()
			path := filepath.Join(dir, "podium.yaml")
			convey.So(os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("PODIUM_CONFIG", path)
			_ = os.Setenv("PODIUM_ADDR", ":6060")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnvVars()
			_ = os.Setenv("PODIUM_CONFIG", "/nonexistent/podium.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When upstream_mode is invalid", func() {
			clearConfigEnvVars()
			_ = os.Setenv("PODIUM_UPSTREAM_MODE", "carrier-pigeon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation should reject it", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"PODIUM_CONFIG",
		"PODIUM_ADDR",
		"PODIUM_LOG_LEVEL",
		"PODIUM_UPSTREAM_URL",
		"PODIUM_UPSTREAM_MODE",
		"PODIUM_POLL_INTERVAL_MS",
		"PODIUM_REQUEST_TIMEOUT_MS",
		"PODIUM_ROSTER_URL",
		"PODIUM_ROSTER_TTL_HOURS",
		"PODIUM_DATA_DIR",
		"PODIUM_MIN_VISIBLE",
		"PODIUM_RECONNECT_FLOOR_MS",
		"PODIUM_RECONNECT_CEILING_MS",
		"PODIUM_CHANGE_EVENT_TTL_MS",
		"PODIUM_SSE_KEEPALIVE_MS",
		"PODIUM_SNAPSHOT_ENABLED",
	} {
		_ = os.Unsetenv(key)
	}
}
