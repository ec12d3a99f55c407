package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ammiranda/treepath/models"
	"github.com/ammiranda/treepath/service"
)

const showLongDesc string = `Print a category and the subtree below it.

Examples:
  treepath show 1
  treepath show 4 --sqlite-path ./tree.db`

const addLongDesc string = `Create a category, as a root or below --parent.

Examples:
  treepath add electronics
  treepath add phones --parent 1`

const moveLongDesc string = `Move a category, with its whole subtree, below --parent.
Without --parent the category becomes a root.

Examples:
  treepath move 4 --parent 2
  treepath move 4`

// treeCommander runs one category command against a freshly opened service
type treeCommander struct {
	flags *globalFlags
}

func (c *treeCommander) run(cmd *cobra.Command, fn func(svc *service.CategoryService) error) error {
	svc, closeStore, err := c.flags.openService(cmd)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(svc)
}

func newTreeCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	return &cobra.Command{
		Use:   "tree",
		Short: "Print every tree in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				forest, err := svc.Forest(cmd.Context())
				if errors.Is(err, models.ErrTreeNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "no categories")
					return nil
				}
				if err != nil {
					return err
				}
				for _, node := range forest {
					printTree(cmd.OutOrStdout(), node, 0)
				}
				return nil
			})
		},
	}
}

func newRootsCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	return &cobra.Command{
		Use:   "roots",
		Short: "List the root categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				roots, err := svc.Roots(cmd.Context())
				if err != nil {
					return err
				}
				printCategories(cmd.OutOrStdout(), roots)
				return nil
			})
		},
	}
}

func newShowCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a category and its subtree",
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				category, err := svc.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				node, err := svc.Subtree(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printCategory(out, category)
				fmt.Fprintln(out)
				printTree(out, node, 0)
				return nil
			})
		},
	}
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	var parent int64

	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Create a category",
		Long:  addLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				category, err := svc.Create(cmd.Context(), args[0], optionalID(cmd, "parent", parent))
				if err != nil {
					return err
				}
				printCategory(cmd.OutOrStdout(), category)
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&parent, "parent", "p", 0, "Id of the parent category")
	return cmd
}

func newMoveCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	var parent int64

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a category below another, or to the top",
		Long:  moveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				category, result, err := svc.Move(cmd.Context(), id, optionalID(cmd, "parent", parent))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printCategory(out, category)
				fmt.Fprintf(out, "rewrote %d descendants\n", result.Rewritten)
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&parent, "parent", "p", 0, "Id of the new parent category")
	return cmd
}

func newDetachCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	return &cobra.Command{
		Use:   "detach <id>",
		Short: "Make a category a childless root, handing its children to its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				category, err := svc.Detach(cmd.Context(), id)
				if err != nil {
					return err
				}
				printCategory(cmd.OutOrStdout(), category)
				return nil
			})
		},
	}
}

func newRemoveCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a category, handing its children to its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				if err := svc.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
				return nil
			})
		},
	}
}

func newAncestorsCmd(flags *globalFlags) *cobra.Command {
	cmder := &treeCommander{flags: flags}
	return &cobra.Command{
		Use:   "ancestors <id>",
		Short: "List the ancestors of a category, root first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return cmder.run(cmd, func(svc *service.CategoryService) error {
				ancestors, err := svc.PathFromRoot(cmd.Context(), id)
				if err != nil {
					return err
				}
				printCategories(cmd.OutOrStdout(), ancestors)
				return nil
			})
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid category id %q", arg)
	}
	return id, nil
}

// optionalID returns nil unless the named flag was given
func optionalID(cmd *cobra.Command, name string, value int64) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func printCategory(w io.Writer, c *models.Category) {
	parent := "-"
	if c.ParentID != nil {
		parent = strconv.FormatInt(*c.ParentID, 10)
	}
	fmt.Fprintf(w, "%d\t%s\tlevel=%d\tparent=%s\tpath=%q\n", c.ID, c.Label, c.Level, parent, c.Path)
}

func printCategories(w io.Writer, categories []*models.Category) {
	if len(categories) == 0 {
		fmt.Fprintln(w, "no categories")
		return
	}
	for _, c := range categories {
		printCategory(w, c)
	}
}

func printTree(w io.Writer, node *models.TreeNode, depth int) {
	fmt.Fprintf(w, "%s%s (%d)\n", strings.Repeat("  ", depth), node.Label, node.ID)
	for _, child := range node.Children {
		printTree(w, child, depth+1)
	}
}
