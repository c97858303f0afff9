package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/smileynet/projtree"
	"github.com/smileynet/projtree/internal/config"
	"github.com/smileynet/projtree/internal/dashboard"
	"github.com/smileynet/projtree/internal/project"
	"github.com/smileynet/projtree/internal/tree"
	"github.com/smileynet/projtree/internal/workspace"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	Store string `help:"Workspace file (overrides config)." placeholder:"PATH"`
}

// CLI is the top-level command structure for projtree.
type CLI struct {
	Globals

	Version  kong.VersionFlag `help:"Show version." short:"V"`
	Tree     TreeCmd          `cmd:"" help:"Open the interactive project tree."`
	List     ListCmd          `cmd:"" help:"Print the project tree."`
	Add      AddCmd           `cmd:"" help:"Create a project."`
	Rm       RmCmd            `cmd:"" help:"Delete a project and its sub-projects."`
	Mv       MvCmd            `cmd:"" help:"Move a project under another parent."`
	Select   SelectCmd        `cmd:"" help:"Make a project the current project."`
	Expand   ExpandCmd        `cmd:"" help:"Expand one project, or all of them."`
	Collapse CollapseCmd      `cmd:"" help:"Collapse one project, or all of them."`
	Init     InitCmd          `cmd:"" help:"Create a workspace file from a seed."`
}

// env bundles what a command needs once config is loaded.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store *project.Store
}

func (e *env) close() {
	_ = e.log.Sync()
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/projtree/config.yaml"),
		".projtree/config.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config, builds the logger, and opens the store.
func setup(g *Globals) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if g.Store != "" {
		cfg.Store.Path = g.Store
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	store, err := project.Open(cfg.Store.Path, project.WithLogger(log.Named("store")))
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &env{cfg: cfg, log: log, store: store}, nil
}

// newLogger returns a JSON file logger, or a no-op logger when no file is set.
// The terminal belongs to the TUI, so logs never go to stdout or stderr.
func newLogger(c config.Log) (*zap.Logger, error) {
	if c.File == "" {
		return zap.NewNop(), nil
	}
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.OutputPaths = []string{c.File}
	zc.ErrorOutputPaths = []string{c.File}
	zc.Sampling = nil
	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return log, nil
}

// --- Tree command ---

// TreeCmd opens the interactive project tree TUI.
type TreeCmd struct {
	NoWatch bool `help:"Do not reload when the workspace file changes on disk."`
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run executes the tree command.
func (c *TreeCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("tree: requires a terminal (TTY)")
	}

	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("tree: %w", err)
	}
	defer e.close()

	ws := workspace.New(e.store, workspace.WithLogger(e.log.Named("workspace")))
	ws.Start()
	defer ws.Stop()

	m := dashboard.NewModel(ws,
		dashboard.WithTreePadding(e.cfg.UI.TreePadding),
		dashboard.WithUnnamedLabel(e.cfg.UI.UnnamedLabel),
	)
	prog := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if e.cfg.Store.Watch && !c.NoWatch {
		go watchStore(ctx, e.store, e.cfg.Store.Debounce, prog)
	}

	return c.run(true, prog)
}

// sender delivers messages into a running program.
type sender interface {
	Send(msg tea.Msg)
}

// watchStore forwards workspace file changes to the program until ctx is done.
// Reloading happens in the program's update loop, never on this goroutine.
func watchStore(ctx context.Context, s *project.Store, debounce time.Duration, p sender) {
	err := s.Watch(ctx, debounce, func() {
		p.Send(dashboard.StoreChangedMsg{})
	})
	if err != nil {
		p.Send(dashboard.WatchErrorMsg{Err: err})
	}
}

// run executes the tea program, enabling testable wiring.
func (c *TreeCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("tree: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// --- List command ---

// ListCmd prints the flattened project tree.
type ListCmd struct {
	All  bool `help:"Include projects hidden under collapsed parents."`
	IDs  bool `help:"Show project IDs." name:"ids"`
	JSON bool `help:"Print JSON instead of an indented tree." name:"json"`
}

// listEntry is one row of list --json output.
type listEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Expandable bool   `json:"expandable"`
	Expanded   bool   `json:"expanded"`
	Current    bool   `json:"current,omitempty"`
}

// Run executes the list command.
func (c *ListCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer e.close()
	return c.run(os.Stdout, e.store, e.cfg.UI)
}

// run prints the store's projects, enabling testable wiring.
func (c *ListCmd) run(w io.Writer, s *project.Store, ui config.UI) error {
	eng := tree.NewEngine()
	eng.SetData(s.Roots())
	eng.Sync(s)
	nodes := eng.Control().Visible()
	if c.All {
		nodes = eng.Control().Nodes()
	}
	var current string
	if p := s.Current(); p != nil {
		current = p.ID
	}

	if c.JSON {
		out := make([]listEntry, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, listEntry{
				ID:         n.ID,
				Name:       n.Name,
				Level:      n.Level,
				Expandable: n.Expandable,
				Expanded:   eng.Control().IsExpanded(n),
				Current:    n.ID == current,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return nil
	}

	if len(nodes) == 0 {
		_, _ = fmt.Fprintln(w, "No projects. Run 'projtree add NAME' or 'projtree init'.")
		return nil
	}
	for _, n := range nodes {
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", n.Level*ui.TreePadding))
		switch {
		case !n.Expandable:
			b.WriteString(dashboard.LeafMarker)
		case eng.Control().IsExpanded(n):
			b.WriteString(dashboard.ExpandedMarker)
		default:
			b.WriteString(dashboard.CollapsedMarker)
		}
		if n.Name == "" {
			b.WriteString(ui.UnnamedLabel)
		} else {
			b.WriteString(n.Name)
		}
		if n.ID == current {
			b.WriteString(dashboard.ActiveMarker)
		}
		if c.IDs {
			b.WriteString("  [" + n.ID + "]")
		}
		_, _ = fmt.Fprintln(w, b.String())
	}
	return nil
}

// --- Add command ---

// AddCmd creates a project.
type AddCmd struct {
	Name   string `arg:"" help:"Project name." optional:""`
	Parent string `help:"Parent project ID (default: top level)." short:"p"`
	Select bool   `help:"Make the new project current." short:"s"`
}

// Run executes the add command.
func (c *AddCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	defer e.close()
	return c.run(os.Stdout, e.store)
}

// run creates the project, enabling testable wiring.
func (c *AddCmd) run(w io.Writer, s *project.Store) error {
	id, err := s.Create(c.Parent, c.Name)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if c.Select {
		if err := s.SetCurrent(id); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	}
	_, _ = fmt.Fprintln(w, id)
	return nil
}

// --- Rm command ---

// RmCmd deletes a project together with its sub-projects.
type RmCmd struct {
	ID  string `arg:"" help:"Project ID."`
	Yes bool   `help:"Skip the confirmation prompt." short:"y"`
}

// confirmFunc asks the user to approve a deletion.
type confirmFunc func(title, description string) (bool, error)

// errCancelled reports a deletion the user declined.
var errCancelled = errors.New("cancelled")

// Run executes the rm command.
func (c *RmCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	defer e.close()

	var ask confirmFunc
	if !c.Yes {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("rm: not a terminal; pass --yes to delete without confirmation")
		}
		ask = huhConfirm
	}
	ws := workspace.New(e.store, workspace.WithLogger(e.log.Named("workspace")))
	return c.run(os.Stdout, ws, e.store, ask)
}

// deleter removes projects by ID.
type deleter interface {
	Delete(id string) error
}

// subtreeCollector lists what a deletion would remove.
type subtreeCollector interface {
	CollectSubtree(id string) ([]project.Identifier, error)
}

// run confirms and deletes, enabling testable wiring. A nil ask skips the prompt.
func (c *RmCmd) run(w io.Writer, ws subtreeCollector, s deleter, ask confirmFunc) error {
	list, err := ws.CollectSubtree(c.ID)
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	if ask != nil {
		ok, err := ask(workspace.DeleteTitle, deleteDescription(list))
		if err != nil {
			return fmt.Errorf("rm: %w", err)
		}
		if !ok {
			return fmt.Errorf("rm: %w", errCancelled)
		}
	}
	if err := s.Delete(c.ID); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Deleted %d project(s)\n", len(list))
	return nil
}

func deleteDescription(list []project.Identifier) string {
	var b strings.Builder
	b.WriteString(workspace.DeleteMessage)
	b.WriteString("\n")
	for _, item := range list {
		title := item.Title
		if title == "" {
			title = "(unnamed)"
		}
		b.WriteString("\n  • " + title)
	}
	return b.String()
}

// huhConfirm prompts on the terminal with the delete dialog's texts.
func huhConfirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative(workspace.DeleteConfirm).
			Negative(workspace.DeleteCancel).
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// --- Mv command ---

// MvCmd moves a project to a new parent and position.
type MvCmd struct {
	ID    string `arg:"" help:"Project ID."`
	To    string `help:"New parent project ID (default: top level)."`
	Index int    `help:"Position among the new siblings (default: last)." default:"-1"`
}

// Run executes the mv command.
func (c *MvCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("mv: %w", err)
	}
	defer e.close()
	return c.run(os.Stdout, e.store)
}

// run performs the move, enabling testable wiring.
func (c *MvCmd) run(w io.Writer, s *project.Store) error {
	index := c.Index
	if index < 0 {
		index = len(s.Roots())
		if c.To != "" {
			p, ok := s.Get(c.To)
			if !ok {
				return fmt.Errorf("mv: %w: %q", project.ErrNotFound, c.To)
			}
			index = len(p.Subprojects)
		}
	}
	if err := s.Move(c.ID, c.To, index); err != nil {
		return fmt.Errorf("mv: %w", err)
	}
	parent, at, _ := s.Locate(c.ID)
	if parent == "" {
		parent = "top level"
	}
	_, _ = fmt.Fprintf(w, "Moved %s to %s at %d\n", c.ID, parent, at)
	return nil
}

// --- Select command ---

// SelectCmd makes a project current.
type SelectCmd struct {
	ID string `arg:"" help:"Project ID."`
}

// Run executes the select command.
func (c *SelectCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	defer e.close()
	if err := e.store.SetCurrent(c.ID); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	return nil
}

// --- Expand / Collapse commands ---

// ExpandCmd expands one project, or every project when no ID is given.
type ExpandCmd struct {
	ID string `arg:"" optional:"" help:"Project ID (default: all)."`
}

// CollapseCmd collapses one project, or every project when no ID is given.
type CollapseCmd struct {
	ID string `arg:"" optional:"" help:"Project ID (default: all)."`
}

// Run executes the expand command.
func (c *ExpandCmd) Run(g *Globals) error {
	return runSetExpanded(g, "expand", c.ID, true)
}

// Run executes the collapse command.
func (c *CollapseCmd) Run(g *Globals) error {
	return runSetExpanded(g, "collapse", c.ID, false)
}

func runSetExpanded(g *Globals, name, id string, expanded bool) error {
	e, err := setup(g)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer e.close()
	if err := setExpanded(e.store, id, expanded); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// setExpanded persists the expansion flag of id, or of every project when
// id is empty.
func setExpanded(s *project.Store, id string, expanded bool) error {
	if id == "" {
		s.SetAllExpanded(expanded)
		return nil
	}
	if _, ok := s.Get(id); !ok {
		return fmt.Errorf("%w: %q", project.ErrNotFound, id)
	}
	s.Update(project.Patch{ID: id, Expanded: &expanded})
	return nil
}

// --- Init command ---

// InitCmd writes a seed workspace to the configured store path.
type InitCmd struct {
	Seed  string `help:"Seed name (see --list)." default:"starter"`
	Force bool   `help:"Overwrite an existing workspace file."`
	List  bool   `help:"List the available seeds."`
}

// seedDir holds local seeds that override the embedded ones.
const seedDir = ".projtree/seeds"

// Run executes the init command.
func (c *InitCmd) Run(g *Globals) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if g.Store != "" {
		cfg.Store.Path = g.Store
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return c.run(os.Stdout, projtree.OverlayFS(seedDir, projtree.Seeds), cfg.Store.Path)
}

// run writes the seed to path, enabling testable wiring.
func (c *InitCmd) run(w io.Writer, seeds fs.FS, path string) error {
	if c.List {
		names, err := projtree.SeedNames(projtree.Seeds)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		for _, n := range names {
			_, _ = fmt.Fprintln(w, n)
		}
		return nil
	}

	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("init: %s already exists (use --force to overwrite)", path)
	}
	data, err := projtree.ReadSeed(seeds, c.Seed)
	if err != nil {
		return fmt.Errorf("init: seed %q: %w", c.Seed, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	// Reopen to reject a malformed local seed before reporting success.
	s, err := project.Open(path)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	count := 0
	for _, r := range s.Roots() {
		count += len(s.SubTree(r.ID))
	}
	_, _ = fmt.Fprintf(w, "Initialized %s with %d project(s) from seed %q\n", path, count, c.Seed)
	return nil
}

const (
	exitSuccess   = 0
	exitOperation = 1
	exitSetup     = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, target := range []error{
		project.ErrNotFound,
		project.ErrCycle,
		project.ErrInvalidName,
		project.ErrIndexOutOfRange,
		workspace.ErrNotImplemented,
		errCancelled,
	} {
		if errors.Is(err, target) {
			return exitOperation
		}
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("projtree"),
		kong.Description("Organize projects as a nested tree."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
