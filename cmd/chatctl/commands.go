package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"multichat/internal/service"
)

type rootOptions struct {
	user    string
	app     *app
	cleanup func()
}

func newRootCmd(open func() (*app, func(), error)) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "chatctl",
		Short:        "Multi-provider chat from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.user == "" {
				return errors.New("--user cannot be empty")
			}
			a, cleanup, err := open()
			if err != nil {
				return err
			}
			opts.app, opts.cleanup = a, cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.cleanup != nil {
				opts.cleanup()
			}
		},
	}

	defaultUser := os.Getenv("MULTICHAT_USER")
	if defaultUser == "" {
		defaultUser = "local"
	}
	root.PersistentFlags().StringVarP(&opts.user, "user", "u", defaultUser, "user id to act as (env MULTICHAT_USER)")

	root.AddCommand(
		newNewCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newSendCmd(opts),
		newRenameCmd(opts),
		newDeleteCmd(opts),
		newDupCmd(opts),
		newBranchCmd(opts),
		newBranchesCmd(opts),
		newExportCmd(opts),
		newKeyCmd(opts),
		newSettingsCmd(opts),
		newProvidersCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Start a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			conv, err := opts.app.conversations.Create(cmd.Context(), opts.user, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", conv.ID, conv.Title)
			return nil
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			convs, err := opts.app.conversations.List(cmd.Context(), opts.user)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "TITLE", "MESSAGES", "UPDATED")
			for _, c := range convs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Title, c.MessageCount, c.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := opts.app.conversations.Get(cmd.Context(), opts.user, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", detail.Title)
			for _, m := range detail.Messages {
				printMessage(out, m)
			}
			return nil
		},
	}
}

func printMessage(out io.Writer, m service.Message) {
	who := m.Role
	if m.Model != "" {
		who = fmt.Sprintf("%s (%s/%s)", m.Role, m.Provider, m.Model)
	}
	fmt.Fprintf(out, "\n[%d] %s  %s\n%s\n", m.MessageIndex, who, m.ID, m.Content)
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var provider, model string

	cmd := &cobra.Command{
		Use:   "send <conversation-id> <message...>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.app.chat.SendMessage(cmd.Context(), opts.user, service.SendMessageRequest{
				ConversationID: args[0],
				Message:        strings.Join(args[1:], " "),
				Provider:       provider,
				Model:          model,
			})
			if err != nil {
				return err
			}
			printMessage(cmd.OutOrStdout(), resp.AssistantMessage)
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider id (defaults to settings)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model name (defaults to settings or the provider's first model)")
	return cmd
}

func newRenameCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <conversation-id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := opts.app.conversations.Rename(cmd.Context(), opts.user, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", conv.ID, conv.Title)
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and every branch rooted at it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.conversations.Delete(cmd.Context(), opts.user, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newDupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dup <conversation-id>",
		Short: "Duplicate a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := opts.app.conversations.Duplicate(cmd.Context(), opts.user, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", conv.ID, conv.Title)
			return nil
		},
	}
}

func newBranchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "branch <conversation-id> <message-id> <name>",
		Short: "Fork a conversation at a message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.app.conversations.CreateBranch(cmd.Context(), opts.user, service.CreateBranchRequest{
				ConversationID:      args[0],
				BranchFromMessageID: args[1],
				Name:                args[2],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d messages\n", res.Conversation.ID, res.Conversation.Title, res.Conversation.MessageCount)
			return nil
		},
	}
}

func newBranchesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "branches <conversation-id>",
		Short: "List the branches of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branches, err := opts.app.conversations.ListBranches(cmd.Context(), opts.user, args[0])
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "NAME", "CONVERSATION", "FROM MESSAGE")
			for _, b := range branches {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, b.BranchConversationID, b.BranchFromMessageID)
			}
			return tw.Flush()
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <conversation-id>",
		Short: "Export a conversation as json, markdown or html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.app.conversations.Export(cmd.Context(), opts.user, args[0], format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(doc.Body)
				return err
			}
			if output == "." {
				output = doc.Filename
			}
			if err := os.WriteFile(output, doc.Body, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, markdown or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write ("." uses the suggested filename); stdout when empty`)
	return cmd
}

func newKeyCmd(opts *rootOptions) *cobra.Command {
	key := &cobra.Command{
		Use:   "key",
		Short: "Manage provider credentials",
	}

	set := &cobra.Command{
		Use:   "set <provider> <secret>",
		Short: "Store a secret as the active credential for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := opts.app.credentials.Save(cmd.Context(), opts.user, service.SaveCredentialRequest{
				Provider: args[0],
				Secret:   args[1],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tactive\n", cred.ID, cred.Provider)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := opts.app.credentials.List(cmd.Context(), opts.user)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "PROVIDER", "ACTIVE", "CREATED")
			for _, c := range creds {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", c.ID, c.Provider, c.IsActive, c.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <credential-id>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.credentials.Delete(cmd.Context(), opts.user, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	var model string
	test := &cobra.Command{
		Use:   "test <provider> <secret>",
		Short: "Check a secret with a single exchange without storing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := opts.app.chat.TestCredential(cmd.Context(), service.TestCredentialRequest{
				Provider: args[0],
				Secret:   args[1],
				Model:    model,
			})
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.Success {
				return errors.New("credential test failed")
			}
			return nil
		},
	}
	test.Flags().StringVarP(&model, "model", "m", "", "model to test with (defaults to the provider's first model)")

	key.AddCommand(set, list, del, test)
	return key
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Show chat settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.app.settings.Get(cmd.Context(), opts.user)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}

	var (
		provider, model, theme, systemPrompt string
		temperature                          float64
		maxTokens                            int
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update chat settings; only the given flags change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.UpdateSettingsRequest
			flags := cmd.Flags()
			if flags.Changed("provider") {
				req.DefaultProvider = &provider
			}
			if flags.Changed("model") {
				req.DefaultModel = &model
			}
			if flags.Changed("temperature") {
				req.Temperature = &temperature
			}
			if flags.Changed("max-tokens") {
				req.MaxTokens = &maxTokens
			}
			if flags.Changed("theme") {
				req.Theme = &theme
			}
			if flags.Changed("system-prompt") {
				req.SystemPrompt = &systemPrompt
			}

			s, err := opts.app.settings.Update(cmd.Context(), opts.user, req)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}
	set.Flags().StringVar(&provider, "provider", "", "default provider id")
	set.Flags().StringVar(&model, "model", "", "default model")
	set.Flags().Float64Var(&temperature, "temperature", 0.7, "sampling temperature, 0 to 2")
	set.Flags().IntVar(&maxTokens, "max-tokens", 2000, "reply token limit")
	set.Flags().StringVar(&theme, "theme", "", "light, dark or system")
	set.Flags().StringVar(&systemPrompt, "system-prompt", "", "system prompt")

	settings.AddCommand(set)
	return settings
}

func printSettings(out io.Writer, s service.Settings) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "provider\t%s\n", s.DefaultProvider)
	fmt.Fprintf(tw, "model\t%s\n", s.DefaultModel)
	fmt.Fprintf(tw, "temperature\t%g\n", s.Temperature)
	fmt.Fprintf(tw, "max tokens\t%d\n", s.MaxTokens)
	fmt.Fprintf(tw, "theme\t%s\n", s.Theme)
	fmt.Fprintf(tw, "system prompt\t%q\n", s.SystemPrompt)
	_ = tw.Flush()
}

func newProvidersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported providers and models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "DIALECT", "MODELS")
			for _, p := range opts.app.chat.Providers() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Dialect, strings.Join(p.Models, ", "))
			}
			return tw.Flush()
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for --user to call the HTTP API with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.app.tokens.Issue(opts.user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newTable(out io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}
