package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage episodic sessions",
	}

	var description string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			rec, err := a.stores.Episodic.CreateSession(cmd.Context(), args[0], description)
			if err != nil {
				exitErr("create session", err)
			}
			printJSON(rec)
		},
	}
	createCmd.Flags().StringVar(&description, "description", "", "Session description")

	var (
		tags   []string
		source string
	)
	addCmd := &cobra.Command{
		Use:   "add <session-id> <content>",
		Short: "Add a memory to a session",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			rec, err := a.stores.Episodic.AddToSession(cmd.Context(), args[0], args[1], tags, nil, source)
			if err != nil {
				exitErr("add to session", err)
			}
			printJSON(rec)
		},
	}
	addCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags")
	addCmd.Flags().StringVarP(&source, "source", "s", "cli", "Record source")

	listCmd := &cobra.Command{
		Use:   "list <session-id>",
		Short: "List a session's memories in event order",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			recs, err := a.stores.Episodic.SessionMemories(cmd.Context(), args[0])
			if err != nil {
				exitErr("list session", err)
			}
			printJSON(recs)
		},
	}

	var deleteMemories bool
	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			n, err := a.stores.Episodic.DeleteSession(cmd.Context(), args[0], deleteMemories)
			if err != nil {
				exitErr("delete session", err)
			}
			printJSON(map[string]int{"deleted": n})
		},
	}
	deleteCmd.Flags().BoolVar(&deleteMemories, "delete-memories", false, "Also delete member memories")

	sessionCmd.AddCommand(createCmd, addCmd, listCmd, deleteCmd)
	RootCmd.AddCommand(sessionCmd)
}
