package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/custseg/internal/cli"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the custseg binary entry point", t, func() {
		ctx := context.Background()
		var stdout, stderr bytes.Buffer

		convey.Convey("When asking for help", func() {
			code := run(ctx, []string{"--help"}, &stdout, &stderr)

			convey.Convey("Then it lists the commands and succeeds", func() {
				convey.So(code, convey.ShouldEqual, cli.ExitSuccess)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "segment")
				convey.So(stdout.String(), convey.ShouldContainSubstring, "serve")
			})
		})

		convey.Convey("When the format flag is invalid", func() {
			code := run(ctx, []string{"report", "--format", "csv"}, &stdout, &stderr)

			convey.Convey("Then it exits with a command error", func() {
				convey.So(code, convey.ShouldEqual, cli.ExitCommandError)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "invalid format")
			})
		})

		convey.Convey("When the database cannot be reached", func() {
			t.Setenv("CUSTSEG_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			t.Setenv("CUSTSEG_DATABASE_DRIVER", "sqlite3")
			t.Setenv("CUSTSEG_DATABASE_URL", filepath.Join(t.TempDir(), "no", "such", "dir", "shop.db"))
			code := run(ctx, []string{"segment", "--dry-run"}, &stdout, &stderr)

			convey.Convey("Then it exits with a run failure", func() {
				convey.So(code, convey.ShouldEqual, cli.ExitFailure)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "failed to open database")
			})
		})

		convey.Convey("When an unknown command is given", func() {
			code := run(ctx, []string{"explode"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, cli.ExitFailure)
		})
	})
}
