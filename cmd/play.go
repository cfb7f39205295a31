package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ossia/internal/engine"
	"ossia/internal/song"
)

const volumeStep = 0.1

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <query>",
	Short: "Resolve a query and start an interactive playback session",
	Long: `Resolve a query against the search and validation providers, start playing
the best candidate and keep the session alive: when the track ends the engine
continues with the queue or the recommendation pool.

Session commands:
  p            play/pause
  n, b         next / previous track
  + / -        volume up / down
  r            toggle repeat
  lens <track|artist>
               switch the recommendation lens
  seek <secs>  seek to an absolute position
  s            print session status
  rel          print the current recommendation pool
  q            quit`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		query := strings.Join(args, " ")
		tracks, err := a.pipeline.Resolve(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", query, err)
		}
		if len(tracks) == 0 {
			return fmt.Errorf("no playable match for %q", query)
		}

		sub := a.engine.Subscribe()
		go a.eventLoop(sub, func(_, cur *song.Track) {
			if cur != nil {
				fmt.Printf("▶ %s - %s  [%s]\n", cur.Artist, cur.Title, formatDuration(cur.Duration))
			}
		})
		go printErrors(sub)

		a.engine.Play(tracks[0])

		runControlLoop(a.engine)
		return nil
	},
}

func printErrors(sub *engine.Subscription) {
	for {
		select {
		case <-sub.Done:
			return
		case ev := <-sub.Error:
			if ev.Track != nil {
				fmt.Fprintf(os.Stderr, "%s failed for %s - %s: %v\n",
					ev.Operation, ev.Track.Artist, ev.Track.Title, ev.Err)
			} else {
				fmt.Fprintf(os.Stderr, "%s failed: %v\n", ev.Operation, ev.Err)
			}
		}
	}
}

func runControlLoop(eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "q", "quit":
			return
		case "p":
			eng.Pause()
		case "n":
			eng.Next()
		case "b":
			eng.Previous()
		case "+":
			eng.SetVolume(eng.Volume() + volumeStep)
		case "-":
			eng.SetVolume(eng.Volume() - volumeStep)
		case "r":
			eng.SetRepeat(!eng.Repeat())
		case "lens":
			eng.SetRelationLens(engine.Lens(arg))
		case "seek":
			if secs, err := strconv.Atoi(arg); err == nil {
				eng.SeekTo(time.Duration(secs) * time.Second)
			}
		case "s", "status":
			printStatus(eng.Snapshot())
		case "rel":
			printRelated(eng.RelatedTracks())
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func printStatus(s engine.Snapshot) {
	if s.Current == nil {
		fmt.Println("idle")
		return
	}
	fmt.Printf("%s: %s - %s  %s/%s  vol %d%%\n",
		s.State,
		s.Current.Artist, s.Current.Title,
		formatDuration(s.Position), formatDuration(s.Duration),
		int(s.Volume*100))
	if len(s.Queue) > 0 {
		fmt.Printf("queue: %s of %d\n", humanize.Ordinal(s.QueuePosition+1), len(s.Queue))
	}
	if s.Repeat {
		fmt.Println("repeat: on")
	}
}

func printRelated(tracks []song.Track) {
	if len(tracks) == 0 {
		fmt.Println("no recommendations yet")
		return
	}
	for i, t := range tracks {
		fmt.Printf("%2d. %s - %s\n", i+1, t.Artist, t.Title)
	}
}
