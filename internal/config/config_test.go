package config_test

import (
	"testing"

	"github.com/kinesia/poseloop/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.Transport, convey.ShouldEqual, "http")
			convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 120)
			convey.So(cfg.StartScore, convey.ShouldEqual, 100)
			convey.So(cfg.AnnounceCooldownMS, convey.ShouldEqual, 2000)
			convey.So(cfg.AnnounceBacklog, convey.ShouldEqual, 5)
			convey.So(cfg.AnnouncePaceMS, convey.ShouldEqual, 300)
			convey.So(cfg.VisibilityThreshold, convey.ShouldEqual, 0.3)
		})
	})
}
