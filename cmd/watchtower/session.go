package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Long: `Log in with an analyst account. The password is taken from --password,
then WATCHTOWER_PASSWORD, then the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("WATCHTOWER_PASSWORD")
			}
			if password == "" {
				p, err := readLine(cmd.InOrStdin(), a.errOut, "password: ")
				if err != nil {
					return err
				}
				password = p
			}
			c, err := a.watchtower()
			if err != nil {
				return err
			}
			sess, err := c.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s logged in as %s (%s)\n",
				okStyle.Render("✓"), sess.Identity.Handle, sess.Identity.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "analyst", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func readLine(r io.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c, err := a.watchtower()
			if err != nil {
				return err
			}
			c.Logout()
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c, err := a.watchtower()
			if err != nil {
				return err
			}
			sess := c.Session()
			if a.jsonOut {
				out := map[string]any{"authenticated": c.Authenticated(), "api_url": a.cfg.APIURL}
				if sess.Identity != nil {
					out["user"], out["role"], out["expires_at"] = sess.Identity.Handle, sess.Identity.Role, sess.ExpiresAt
				}
				return renderJSON(a.out, out)
			}
			if !c.Authenticated() {
				renderFields(a.out, "api", a.cfg.APIURL, "session", "not logged in")
				return nil
			}
			expires := "unknown"
			if !sess.ExpiresAt.IsZero() {
				expires = fmt.Sprintf("%s (in %s)", stamp(sess.ExpiresAt), time.Until(sess.ExpiresAt).Round(time.Second))
			}
			renderFields(a.out,
				"api", a.cfg.APIURL,
				"user", sess.Identity.Handle,
				"role", sess.Identity.Role,
				"expires", expires,
			)
			return nil
		},
	}
}
