package feed_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/podium/internal/adapters/feed"
	"github.com/okian/podium/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSSEClient(t *testing.T) {
	convey.Convey("Given an SSE client", t, func() {
		ctx := context.Background()

		convey.Convey("When the server streams board events", func(cv convey.C) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				cv.So(r.Header.Get("Accept"), convey.ShouldEqual, "text/event-stream")
				w.Header().Set("Content-Type", "text/event-stream")
				flusher := w.(http.Flusher)

				fmt.Fprint(w, ": ping\n\n")
				fmt.Fprint(w, "event: board\n")
				fmt.Fprint(w, `data: {"agents": [{"id": "1", "name": "Ada Vance", "rank": 1}], "stats": {}}`+"\n\n")
				fmt.Fprint(w, "data: not json at all\n\n")
				fmt.Fprint(w, `data: {"agents": [{"id": "2", "name": "Ben Okafor", "rank": 1}], "stats": {}}`+"\n\n")
				flusher.Flush()
			}))
			defer srv.Close()

			c := feed.NewSSEClient(srv.URL)
			var boards []model.Board
			err := c.Stream(ctx, func(b model.Board) {
				boards = append(boards, b)
			})

			convey.Convey("Then parsed payloads are delivered and junk is skipped", func() {
				convey.So(errors.Is(err, feed.ErrStreamClosed), convey.ShouldBeTrue)
				convey.So(boards, convey.ShouldHaveLength, 2)
				convey.So(boards[0].Agents[0].Name, convey.ShouldEqual, "Ada Vance")
				convey.So(boards[1].Agents[0].Name, convey.ShouldEqual, "Ben Okafor")
			})
		})

		convey.Convey("When the server names the events leaderboard", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				flusher := w.(http.Flusher)

				fmt.Fprint(w, "event: leaderboard\n")
				fmt.Fprint(w, `data: {"agents": [{"id": "3", "name": "Cara Lindqvist", "rank": 1}], "stats": {}}`+"\n\n")
				fmt.Fprint(w, "event: heartbeat\n")
				fmt.Fprint(w, "data: {}\n\n")
				flusher.Flush()
			}))
			defer srv.Close()

			c := feed.NewSSEClient(srv.URL)
			var boards []model.Board
			err := c.Stream(ctx, func(b model.Board) {
				boards = append(boards, b)
			})

			convey.Convey("Then the board is delivered and unrelated events are ignored", func() {
				convey.So(errors.Is(err, feed.ErrStreamClosed), convey.ShouldBeTrue)
				convey.So(boards, convey.ShouldHaveLength, 1)
				convey.So(boards[0].Agents[0].Name, convey.ShouldEqual, "Cara Lindqvist")
			})
		})

		convey.Convey("When the server refuses the connection", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer srv.Close()

			c := feed.NewSSEClient(srv.URL)
			err := c.Stream(ctx, func(model.Board) {})

			convey.Convey("Then it should report a status error", func() {
				convey.So(errors.Is(err, feed.ErrStreamStatus), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the content type is wrong", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			c := feed.NewSSEClient(srv.URL)
			err := c.Stream(ctx, func(model.Board) {})

			convey.Convey("Then it should report a status error", func() {
				convey.So(errors.Is(err, feed.ErrStreamStatus), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is cancelled mid-stream", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				w.(http.Flusher).Flush()
				<-r.Context().Done()
			}))
			defer srv.Close()

			streamCtx, cancel := context.WithCancel(ctx)
			errCh := make(chan error, 1)
			c := feed.NewSSEClient(srv.URL)
			go func() {
				errCh <- c.Stream(streamCtx, func(model.Board) {})
			}()

			time.Sleep(20 * time.Millisecond)
			cancel()

			convey.Convey("Then Stream should return promptly", func() {
				select {
				case err := <-errCh:
					convey.So(err, convey.ShouldNotBeNil)
				case <-time.After(time.Second):
					convey.So(true, convey.ShouldBeFalse)
				}
			})
		})
	})
}
