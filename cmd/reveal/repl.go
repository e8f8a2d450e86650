package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"reveal-backend/internal/client"
	"reveal-backend/internal/gallery"
	"reveal-backend/internal/models"
)

const helpText = `Commands:
  login <email> <password>             log in
  register <email> <password> [creator] create an account and log in
  mode login|register                  switch the auth form
  photos                               reload and show the gallery
  show <n|id>                          open an item in the detail panel
  unlock [n|id]                        unlock an item (default: the selected one)
  add                                  add 50 demo tokens
  history                              list wallet transactions
  watch                                toggle live wallet updates
  logout
  help
  quit
`

type repl struct {
	api *client.Client
	in  *bufio.Scanner
	out io.Writer

	outMu sync.Mutex

	shell   *gallery.Shell
	gallery *gallery.Gallery
	stop    context.CancelFunc
}

func newREPL(api *client.Client, in io.Reader, out io.Writer) *repl {
	return &repl{
		api:   api,
		in:    bufio.NewScanner(in),
		out:   out,
		shell: gallery.NewShell(api),
	}
}

func (r *repl) printf(format string, args ...interface{}) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) prompt() {
	if r.shell.LoggedIn() {
		r.printf("%s> ", r.shell.User.Email)
		return
	}
	r.printf("[%s]> ", r.shell.Mode)
}

func (r *repl) run() error {
	ctx := context.Background()
	r.printf("Pay-Per-Reveal Demo (%s)\nType 'help' for commands.\n", r.api.BaseURL)
	defer r.stopWatch()

	for r.prompt(); r.in.Scan(); r.prompt() {
		fields := strings.Fields(r.in.Text())
		if len(fields) == 0 {
			continue
		}
		if quit := r.dispatch(ctx, fields[0], fields[1:]); quit {
			return nil
		}
	}
	return r.in.Err()
}

func (r *repl) dispatch(ctx context.Context, cmd string, args []string) bool {
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		r.printf("%s", helpText)
	case "mode":
		if len(args) != 1 || (args[0] != string(gallery.ModeLogin) && args[0] != string(gallery.ModeRegister)) {
			r.printf("usage: mode login|register\n")
			return false
		}
		r.shell.SetMode(gallery.Mode(args[0]))
	case "login", "register":
		r.auth(ctx, gallery.Mode(cmd), args)
	case "logout":
		r.stopWatch()
		r.shell.Logout()
		r.api.Token = ""
		r.gallery = nil
		r.printf("Logged out.\n")
	default:
		if r.gallery == nil {
			r.printf("Log in first (type 'help').\n")
			return false
		}
		r.galleryCommand(ctx, cmd, args)
	}
	return false
}

func (r *repl) auth(ctx context.Context, mode gallery.Mode, args []string) {
	if len(args) < 2 {
		r.printf("usage: %s <email> <password>\n", mode)
		return
	}
	r.shell.SetMode(mode)
	r.shell.Email, r.shell.Password = args[0], args[1]
	r.shell.IsCreator = mode == gallery.ModeRegister && len(args) > 2 && args[2] == "creator"

	ok := r.shell.Submit(ctx)
	r.printf("%s\n", r.shell.Message)
	if !ok {
		return
	}

	r.stopWatch()
	r.api.Token = r.shell.User.AccessToken
	r.gallery = gallery.NewGallery(r.api, *r.shell.User)
	_ = r.gallery.Load(ctx)
	r.render()
}

func (r *repl) galleryCommand(ctx context.Context, cmd string, args []string) {
	g := r.gallery
	switch cmd {
	case "photos":
		_ = g.Load(ctx)
	case "show":
		if len(args) != 1 {
			r.printf("usage: show <n|id>\n")
			return
		}
		_ = g.Select(ctx, g.Resolve(args[0]))
	case "unlock":
		id := g.SelectedID()
		if len(args) == 1 {
			id = g.Resolve(args[0])
		}
		if id == "" {
			r.printf("Select an item from the gallery.\n")
			return
		}
		_ = g.Unlock(ctx, id)
	case "add":
		_ = g.AddTokens(ctx)
	case "history":
		r.history(ctx)
		return
	case "watch":
		r.toggleWatch()
		return
	default:
		r.printf("Unknown command %q (type 'help').\n", cmd)
		return
	}
	r.render()
}

func (r *repl) render() {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	r.gallery.Render(r.out)
}

func (r *repl) history(ctx context.Context) {
	txs, err := r.gallery.History(ctx)
	if err != nil {
		r.printf("%s\n", client.Message(err, "Error loading history"))
		return
	}
	if len(txs) == 0 {
		r.printf("No transactions yet.\n")
	}
	for _, tx := range txs {
		line := fmt.Sprintf("%s  %-8s %+5d", tx.CreatedAt.Local().Format("2006-01-02 15:04:05"), tx.Kind, tx.Amount)
		if tx.PhotoID != "" {
			line += "  " + tx.PhotoID
		}
		r.printf("%s\n", line)
	}
}

func (r *repl) toggleWatch() {
	if r.stop != nil {
		r.stopWatch()
		r.printf("Live updates off.\n")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.stop = cancel
	g, userID := r.gallery, r.shell.User.ID
	go func() {
		err := r.api.Watch(ctx, userID, func(e models.WalletEvent) {
			g.ApplyEvent(e)
			r.printf("\n[live] %s: wallet %d tokens\n", e.Event, e.TokenBalance)
		})
		if err != nil {
			r.printf("\n[live] stopped: %s\n", client.Message(err, "Error watching wallet"))
		}
	}()
	r.printf("Live updates on.\n")
}

func (r *repl) stopWatch() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}
