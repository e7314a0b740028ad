package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/rbacadmin/rbac-console/api"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/rbac"
)

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "users":
		return a.cmdUsers(ctx, args)
	case "roles":
		return a.cmdRoles(ctx, args)
	case "permissions":
		return a.cmdPermissions(ctx, args)
	case "audit":
		return a.cmdAudit(ctx, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password (prompted when omitted)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("login: -email is required")
	}
	if *password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return errors.Wrap(err, "read password")
		}
		*password = strings.TrimSpace(line)
	}

	if err := a.store.Login(ctx, *email, *password); err != nil {
		return err
	}
	user := a.store.User()
	fmt.Printf("Logged in as %s (%s)\n", user.FullName(), user.Email)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if !a.store.IsAuthenticated() {
		return errors.New("not logged in")
	}

	// The cached identity may be stale or missing after a cold start;
	// prefer a fresh profile when the server is reachable.
	user, err := a.store.RefreshProfile(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Msg("profile refetch failed, using cached identity")
		user = a.store.User()
	}
	if user == nil {
		return errors.New("no identity available; try logging in again")
	}

	fmt.Printf("%s <%s>\n", user.FullName(), user.Email)
	for _, role := range user.Roles {
		fmt.Printf("  role: %s\n", role.Name)
		for _, p := range role.Permissions {
			fmt.Printf("    %s:%s\n", p.Resource, p.Action)
		}
	}
	return nil
}

func (a *app) cmdUsers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("users: subcommand required (list|get|activate|deactivate)")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		flags := flag.NewFlagSet("users list", flag.ContinueOnError)
		page := flags.Int("page", 1, "page number")
		limit := flags.Int("limit", 20, "page size")
		search := flags.String("search", "", "search term")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		users, pageInfo, err := a.users.List(ctx, api.UserFilters{
			ListQuery: apimodel.ListQuery{Page: *page, Limit: *limit, Search: *search},
		})
		if err != nil {
			return err
		}
		printUsers(users)
		printPage(pageInfo)
		return nil

	case "get":
		if len(rest) != 1 {
			return errors.New("users get: expected exactly one user id")
		}
		user, err := a.users.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		printUsers([]rbac.User{*user})
		return nil

	case "activate", "deactivate":
		if len(rest) != 1 {
			return errors.Errorf("users %s: expected exactly one user id", sub)
		}
		user, err := a.users.SetActive(ctx, rest[0], sub == "activate")
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", user.Email, activeLabel(user.IsActive))
		return nil

	default:
		return errors.Errorf("users: unknown subcommand %q", sub)
	}
}

func (a *app) cmdRoles(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("roles: subcommand required (list|get)")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		roles, pageInfo, err := a.roles.List(ctx, apimodel.ListQuery{Limit: 50})
		if err != nil {
			return err
		}
		w := newTable()
		fmt.Fprintln(w, "ID\tNAME\tPERMISSIONS\tACTIVE")
		for _, role := range roles {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", role.ID, role.Name, len(role.Permissions), activeLabel(role.IsActive))
		}
		w.Flush()
		printPage(pageInfo)
		return nil

	case "get":
		if len(rest) != 1 {
			return errors.New("roles get: expected exactly one role id")
		}
		role, err := a.roles.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", role.Name, role.ID)
		if role.Description != "" {
			fmt.Println(role.Description)
		}
		for _, p := range role.Permissions {
			fmt.Printf("  %s:%s\n", p.Resource, p.Action)
		}
		return nil

	default:
		return errors.Errorf("roles: unknown subcommand %q", sub)
	}
}

func (a *app) cmdPermissions(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return errors.New("permissions: subcommand required (list)")
	}
	permissions, pageInfo, err := a.permissions.List(ctx, apimodel.ListQuery{Limit: 100})
	if err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tRESOURCE\tACTION\tDESCRIPTION")
	for _, p := range permissions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Resource, p.Action, p.Description)
	}
	w.Flush()
	printPage(pageInfo)
	return nil
}

func (a *app) cmdAudit(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return errors.New("audit: subcommand required (list)")
	}
	flags := flag.NewFlagSet("audit list", flag.ContinueOnError)
	page := flags.Int("page", 1, "page number")
	limit := flags.Int("limit", 20, "page size")
	userID := flags.String("user", "", "filter by user id")
	resource := flags.String("resource", "", "filter by resource")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	entries, pageInfo, err := a.audit.List(ctx, api.AuditFilters{
		ListQuery: apimodel.ListQuery{Page: *page, Limit: *limit},
		UserID:    *userID,
		Resource:  *resource,
	})
	if err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "TIME\tUSER\tACTION\tRESOURCE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.UserEmail, e.Action, e.Resource)
	}
	w.Flush()
	printPage(pageInfo)
	return nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func printUsers(users []rbac.User) {
	w := newTable()
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLES\tACTIVE")
	for _, u := range users {
		roleNames := make([]string, 0, len(u.Roles))
		for _, r := range u.Roles {
			roleNames = append(roleNames, r.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.FullName(), strings.Join(roleNames, ","), activeLabel(u.IsActive))
	}
	w.Flush()
}

func printPage(page apimodel.Page) {
	if page.TotalPages > 1 {
		fmt.Printf("page %d of %d (%d total)\n", page.Page, page.TotalPages, page.Total)
	}
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
