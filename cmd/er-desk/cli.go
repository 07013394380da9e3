package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/acil/er-desk/internal/config"
	"github.com/acil/er-desk/internal/domain/appointment"
	"github.com/acil/er-desk/internal/domain/doctornote"
	"github.com/acil/er-desk/internal/domain/session"
	"github.com/acil/er-desk/pkg/erclient"
)

// cliEnv is what every client subcommand needs: config, an ER client and
// the credentials to call it with.
type cliEnv struct {
	cfg    *config.Config
	client *erclient.Client
	creds  *erclient.Credentials
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("username", "u", "", "ER username (defaults to ER_USERNAME)")
	cmd.PersistentFlags().StringP("password", "p", "", "ER password (defaults to ER_PASSWORD)")
}

func newCLIEnv(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	client, err := erclient.New(cfg.APIBaseURL, erclient.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	creds := &erclient.Credentials{Username: cfg.Username, Password: cfg.Password}
	if u, _ := cmd.Flags().GetString("username"); u != "" {
		creds.Username = u
	}
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		creds.Password = p
	}
	return &cliEnv{cfg: cfg, client: client, creds: creds}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIDArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid appointment id %q", s)
	}
	return id, nil
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check credentials against the ER backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			svc := session.NewService(session.NewStore(), env.client, env.cfg.SessionSecret, env.cfg.SessionTTL)
			tok, err := svc.Login(cmd.Context(), env.creds.Username, env.creds.Password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", tok.Username)
			return nil
		},
	}
	addCredentialFlags(cmd)
	return cmd
}

func appointmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointment",
		Short: "Inspect and update appointments",
	}
	addCredentialFlags(cmd)

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an appointment with patient, triage and suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			svc := appointment.NewService(appointment.NewAPIRepo(env.client))
			view, err := svc.GetView(cmd.Context(), id, env.creds)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	status := &cobra.Command{
		Use:   "status <id> <WAITING|IN_PROGRESS|DONE|CANCELLED>",
		Short: "Change an appointment's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			svc := appointment.NewService(appointment.NewAPIRepo(env.client))
			change, err := svc.UpdateStatus(cmd.Context(), id, args[1], env.creds)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), change)
		},
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "List today's appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			filter, _ := cmd.Flags().GetString("status")
			svc := appointment.NewService(appointment.NewAPIRepo(env.client))
			items, err := svc.ListToday(cmd.Context(), filter, env.creds)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, a := range items {
				name := ""
				if a.Patient != nil {
					name = a.Patient.Name
				}
				fmt.Fprintf(w, "%4d  #%-3d  %-11s  %s\n", a.ID, a.QueueNumber, a.Status, name)
			}
			return nil
		},
	}
	today.Flags().String("status", "", "only list appointments with this status")

	cmd.AddCommand(show, status, today)
	return cmd
}

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Write doctor notes",
	}
	addCredentialFlags(cmd)

	var (
		form      doctornote.Form
		labOrders []string
		markDone  bool
	)
	submit := &cobra.Command{
		Use:   "submit <appointment-id>",
		Short: "Submit a doctor note for an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			for _, l := range labOrders {
				form.ToggleLabOrder(l)
			}
			if form.ReferralDepartment != "" {
				form.ReferralNeeded = true
			}

			apptSvc := appointment.NewService(appointment.NewAPIRepo(env.client))
			svc := doctornote.NewService(doctornote.NewAPIRepo(env.client), apptSvc)
			saved, err := svc.Submit(cmd.Context(), id, &form, markDone, env.creds)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}
	f := submit.Flags()
	f.StringVar(&form.Diagnosis, "diagnosis", "", "primary diagnosis (required)")
	f.StringVar(&form.SecondaryDiagnosis, "secondary-diagnosis", "", "secondary diagnosis")
	f.StringVar(&form.Plan, "plan", "", "treatment plan (required)")
	f.StringVar(&form.Prescription, "prescription", "", "prescription")
	f.StringArrayVar(&labOrders, "lab-order", nil, "lab order to request (repeatable, taken verbatim)")
	f.StringVar(&form.FollowUpDate, "follow-up-date", "", "follow-up date, YYYY-MM-DD")
	f.StringVar(&form.FollowUpNotes, "follow-up-notes", "", "follow-up notes")
	f.BoolVar(&form.ReferralNeeded, "referral", false, "patient needs a referral")
	f.StringVar(&form.ReferralDepartment, "referral-department", "", "department to refer to (implies --referral)")
	f.StringVar(&form.RestDays, "rest-days", "", "days of rest, 0-365")
	f.BoolVar(&markDone, "mark-done", true, "close the appointment after saving the note")

	cmd.AddCommand(submit)
	return cmd
}
