package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cdnmod "github.com/albertocavalcante/go-cdnmod"
	"github.com/albertocavalcante/go-cdnmod/host"
	"github.com/albertocavalcante/go-cdnmod/record"
)

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, defaultCommandTimeout)
}

// recordedResolver pairs a resolver with the recorder behind it, if any.
// With no record path the client's resolver is used directly.
type recordedResolver struct {
	cdnmod.ModuleResolver
	rec  *record.Recorder
	prev *record.Record
	path string
}

func (s *session) resolver(recordPath string) (*recordedResolver, error) {
	if recordPath == "" {
		return &recordedResolver{ModuleResolver: s.client.Resolver()}, nil
	}
	prev, err := record.ReadOrNew(recordPath)
	if err != nil {
		return nil, err
	}
	rec := record.NewRecorder(s.client.Resolver())
	return &recordedResolver{ModuleResolver: rec, rec: rec, prev: prev, path: recordPath}, nil
}

// save reports how this run's resolutions differ from the previous record
// on w and writes the merged record back. A non-nil retain drops entries for
// modules no longer configured.
func (r *recordedResolver) save(w io.Writer, retain []cdnmod.ModuleDescriptor) error {
	if r.rec == nil {
		return nil
	}
	cur := r.rec.Record()
	for _, c := range record.Diff(r.prev, cur) {
		fmt.Fprintln(w, c)
	}
	if err := r.prev.Merge(cur, record.MergePreferNew); err != nil {
		return err
	}
	if retain != nil {
		names := make([]string, len(retain))
		for i, desc := range retain {
			names[i] = desc.Name
		}
		r.prev.Retain(names)
	}
	return r.prev.WriteFile(r.path)
}

type resolvedModule struct {
	Name  string   `json:"name"`
	URL   string   `json:"url"`
	Tried []string `json:"tried"`
}

func newResolveCmd(e *env) *cobra.Command {
	var output, recordPath string
	cmd := &cobra.Command{
		Use:   "resolve [NAME...]",
		Short: "Resolve modules to their first reachable URL",
		Long:  "Resolve the named modules, or every configured module and tool, and print\nthe first reachable URL of each.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q", output)
			}
			s, err := e.open(cmd)
			if err != nil {
				return err
			}
			descs, err := s.selected(args)
			if err != nil {
				return err
			}
			resolver, err := s.resolver(recordPath)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			results := make([]resolvedModule, 0, len(descs))
			for _, desc := range descs {
				res, err := resolver.Resolve(ctx, desc)
				if err != nil {
					return errors.Join(err, resolver.save(cmd.ErrOrStderr(), nil))
				}
				results = append(results, resolvedModule{Name: desc.Name, URL: res.URL, Tried: res.Tried})
			}

			var retain []cdnmod.ModuleDescriptor
			if len(args) == 0 {
				retain = descs
			}
			if err := resolver.save(cmd.ErrOrStderr(), retain); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().StringVar(&recordPath, "record", "", "File to record each resolution's URL and tried list in; changes are reported on stderr")
	return cmd
}

func newCandidatesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates NAME...",
		Short: "Print candidate URLs without network access",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd)
			if err != nil {
				return err
			}
			descs, err := s.selected(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, desc := range descs {
				if len(descs) > 1 {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "# %s\n", desc.Name)
				}
				for _, c := range s.client.Candidates(desc) {
					fmt.Fprintln(out, c)
				}
			}
			return nil
		},
	}
}

func newImportMapCmd(e *env) *cobra.Command {
	var htmlPath, recordPath string
	cmd := &cobra.Command{
		Use:   "import-map",
		Short: "Build the import map of the configured modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := e.open(cmd)
			if err != nil {
				return err
			}
			resolver, err := s.resolver(recordPath)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			m, err := cdnmod.BuildImportMap(ctx, resolver, s.cfg.Modules, 0)
			if err := errors.Join(err, resolver.save(cmd.ErrOrStderr(), nil)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if htmlPath == "" {
				data, err := m.JSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			page, err := renderPage(htmlPath, m)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, page)
			return err
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "Host page to write the import map into; the page is printed")
	cmd.Flags().StringVar(&recordPath, "record", "", "File to record each resolution's URL and tried list in; changes are reported on stderr")
	return cmd
}

func renderPage(path string, m *cdnmod.ImportMap) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open host page: %w", err)
	}
	defer f.Close()

	doc, err := host.ParseDocument(f)
	if err != nil {
		return "", err
	}
	if err := doc.SetImportMap(m); err != nil {
		return "", err
	}
	return doc.HTML()
}

func newLoadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "load NAME",
		Short: "Load a module and print its namespace members",
		Long:  "Load a configured module or tool, or a name matched by a dynamic rule,\nand print the member names of the resulting namespace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			name := args[0]
			var ns *cdnmod.Namespace
			if desc, ok := s.cfg.Lookup(name); ok {
				loaded, err := s.client.LoadModules(ctx, []cdnmod.ModuleDescriptor{desc})
				if err != nil {
					return err
				}
				ns = loaded[name]
			} else {
				ns, err = s.client.LoadDynamic(ctx, name, s.cfg.DynamicModules)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, member := range ns.Names() {
				fmt.Fprintln(out, member)
			}
			return nil
		},
	}
}
