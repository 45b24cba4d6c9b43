package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shortkki/shorts-feed/app/bookmark"
	"github.com/shortkki/shorts-feed/app/cfg"
	"github.com/shortkki/shorts-feed/app/client"
	"github.com/shortkki/shorts-feed/app/feed"
	"github.com/shortkki/shorts-feed/app/playback"
	"github.com/shortkki/shorts-feed/app/session"
)

// consolePlayer logs player commands instead of rendering video
type consolePlayer struct {
	videoID string
}

func (p *consolePlayer) Play()                  { log.Printf("  [player %s] play", p.videoID) }
func (p *consolePlayer) Pause()                 { log.Printf("  [player %s] pause", p.videoID) }
func (p *consolePlayer) SeekTo(seconds float64) { log.Printf("  [player %s] seek %.1fs", p.videoID, seconds) }
func (p *consolePlayer) Mute()                  { log.Printf("  [player %s] mute", p.videoID) }
func (p *consolePlayer) UnMute()                { log.Printf("  [player %s] unmute", p.videoID) }

type consoleNotifier struct{}

func (consoleNotifier) Notify(message string) { log.Printf("  [notice] %s", message) }

// runSimulation drives a scripted feed session against the mock or REST
// collaborators and prints what the player layer would do.
func runSimulation(appCfg *cfg.Cfg) error {
	log.Println("Running scripted feed session...")

	var source feed.SourceClient
	var books bookmark.Client
	if appCfg.MockMode || appCfg.BaseUrl == "" {
		log.Println("Using in-memory mock collaborators")
		mock := client.NewMock()
		source, books = mock, mock
	} else {
		log.Printf("Using backend at %s", appCfg.BaseUrl)
		c := client.New(appCfg.BaseUrl, client.Options{
			APIKey:    appCfg.APIAccessKey,
			UserAgent: appCfg.UserAgent,
		})
		source, books = c, c
	}

	assembler := feed.NewAssembler(source, feed.Source{Kind: feed.SourcePersonalized}, feed.AssemblerOptions{
		PageSize:         appCfg.PageSize,
		PrefetchDistance: appCfg.PrefetchDistance,
	})
	engine := bookmark.NewEngine(books, consoleNotifier{}, appCfg.MockMode || appCfg.BaseUrl == "")

	factory := func(videoID string) playback.Player {
		return &consolePlayer{videoID: videoID}
	}

	sess := session.New(assembler, engine, factory, session.Options{
		SettleDelay: time.Duration(appCfg.SettleDelayMs) * time.Millisecond,
		Notifier:    consoleNotifier{},
	})
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	items := assembler.Items()
	log.Printf("Loaded %d items", len(items))
	for i, item := range items {
		log.Printf("  %2d. %s - %s (%d saves)", i, item.Title, item.Author, item.BookmarkCount)
	}
	if len(items) == 0 {
		return fmt.Errorf("feed is empty")
	}

	settle := time.Duration(appCfg.SettleDelayMs)*time.Millisecond + 100*time.Millisecond

	log.Println("Screen gains focus, first item becomes active")
	sess.HandleScreenFocus()
	sess.HandleViewability(ctx, []session.Viewable{{Index: 0, VisibleFraction: 1.0}})
	simulatePlayerReady(sess, 0)
	time.Sleep(settle)

	log.Println("Scrolling to the second item")
	sess.HandleViewability(ctx, []session.Viewable{
		{Index: 0, VisibleFraction: 0.3},
		{Index: 1, VisibleFraction: 0.7},
	})
	simulatePlayerReady(sess, 1)
	time.Sleep(settle)

	log.Println("Saving the active item to the personal book")
	if err := sess.ToggleBook(ctx, "personal"); err != nil {
		log.Printf("  toggle failed: %v", err)
	}
	if owned, count, ok := sess.BookmarkState(); ok {
		log.Printf("  bookmark state: books=%v saves=%d", owned, count)
	}

	log.Println("App goes to background and returns")
	sess.HandleAppBackground()
	time.Sleep(100 * time.Millisecond)
	sess.HandleAppForeground()
	simulatePlayerReady(sess, 1)
	time.Sleep(settle)

	log.Println("Muting, then unmuting")
	sess.ToggleMute()
	sess.ToggleMute()

	log.Println("Screen loses focus")
	sess.HandleScreenBlur()

	log.Println("Simulation complete")
	return nil
}

// simulatePlayerReady stands in for the player's onReady callback
func simulatePlayerReady(sess *session.Session, index int) {
	if controller := sess.Controller(index); controller != nil {
		controller.OnReady()
	}
}
