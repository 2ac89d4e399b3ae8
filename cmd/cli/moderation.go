package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/sorryboard/internal/service"
)

func moderationCommands(g *globals, mod moderationFactory) []*cobra.Command {
	// run resolves the service and applies the command timeout.
	run := func(fn func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := mod(g)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			return fn(ctx, cmd, svc, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every message, hidden ones included",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, _ []string) error {
			msgs, err := svc.List(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), msgs)
			return nil
		}),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one message",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, args []string) error {
			m, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), m)
			return nil
		}),
	}

	hide := &cobra.Command{
		Use:   "hide <id>",
		Short: "Hide a message from the public board",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, args []string) error {
			m, err := svc.Hide(ctx, args[0])
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), m)
			return nil
		}),
	}

	unhide := &cobra.Command{
		Use:   "unhide <id>",
		Short: "Make a hidden message visible again",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, args []string) error {
			m, err := svc.Unhide(ctx, args[0])
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), m)
			return nil
		}),
	}

	var recipient, sender, message string
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit recipient, sender or message text",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, args []string) error {
			var in service.EditInput
			if cmd.Flags().Changed("recipient") {
				in.Recipient = &recipient
			}
			if cmd.Flags().Changed("sender") {
				in.Sender = &sender
			}
			if cmd.Flags().Changed("message") {
				in.Message = &message
			}
			m, err := svc.Edit(ctx, args[0], in)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), m)
			return nil
		}),
	}
	edit.Flags().StringVar(&recipient, "recipient", "", "new recipient")
	edit.Flags().StringVar(&sender, "sender", "", "new sender, empty to clear")
	edit.Flags().StringVar(&message, "message", "", "new message text")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a message permanently",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, svc service.ModerationService, args []string) error {
			if err := svc.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		}),
	}

	return []*cobra.Command{list, get, hide, unhide, edit, del}
}
