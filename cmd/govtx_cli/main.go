package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lidofinance/govtx/client/types"
)

const (
	flagListenAddr  = "listen_addr"
	flagKind        = "kind"
	flagReferral    = "referral"
	flagReferralFee = "referral_fee"
	flagTrack       = "track"
)

func init() {
	rootCmd.PersistentFlags().String(flagListenAddr, "localhost:8080", "Listen Address")
}

var rootCmd = &cobra.Command{
	Use:   "govtx_cli",
	Short: "govtx daemon cli utilities",
}

func main() {
	rootCmd.AddCommand(
		createRfpCommand(),
		createTipCommand(),
		getFlowsCommand(),
		getFlowCommand(),
		activeStepCommand(),
		estimateCommand(),
		submitCommand(),
		attemptsCommand(),
		referendumCommand(),
		deleteFlowCommand(),
		rateCommand(),
		addressCommand(),
		usernameCommand(),
		nextRfpTitleCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute root command: %v", err)
	}
}

func flowQuery(flowID string) url.Values {
	return url.Values{"flowID": []string{flowID}}
}

func printFlow(f flowView) {
	fmt.Printf("Flow ID: %s\n", f.ID)
	fmt.Printf("Kind: %s\n", f.Kind)
	if f.Title != "" {
		fmt.Printf("Title: %s\n", f.Title)
	}
	fmt.Printf("Steps: %v\n", f.Steps)
	fmt.Printf("Created: %s\n", f.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Print(formatActiveStep(f.ActiveStep))
	fmt.Println("-----------------------------------------------------")
}

func createRfpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create_rfp [form.json]",
		Args:  cobra.ExactArgs(1),
		Short: "creates an RFP flow from a JSON form",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			kind, err := cmd.Flags().GetString(flagKind)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read form: %w", err)
			}
			var form types.RfpForm
			if err = json.Unmarshal(data, &form); err != nil {
				return fmt.Errorf("failed to unmarshal form: %w", err)
			}

			var f flowView
			body := map[string]interface{}{"kind": kind, "form": form}
			if err = call(listenAddr, http.MethodPost, "/createRfpFlow", nil, body, &f); err != nil {
				return fmt.Errorf("failed to create RFP flow: %w", err)
			}
			printFlow(f)
			return nil
		},
	}
	cmd.Flags().String(flagKind, "", "Flow kind: bounty_rfp, child_bounty_rfp or multisig_rfp, derived from the form when empty")
	return cmd
}

func createTipCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create_tip [beneficiary] [usdAmount]",
		Args:  cobra.ExactArgs(2),
		Short: "creates a tip flow paying a USD amount in native tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			referral, err := cmd.Flags().GetString(flagReferral)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			referralFee, err := cmd.Flags().GetInt64(flagReferralFee)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			track, err := cmd.Flags().GetString(flagTrack)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			form := types.TipForm{
				TipBeneficiary:     args[0],
				TipAmount:          amount,
				Referral:           referral,
				ReferralFeePercent: referralFee,
				TipperTrack:        types.TipperTrack(track),
			}
			var f flowView
			if err = call(listenAddr, http.MethodPost, "/createTipFlow", nil, map[string]interface{}{"form": form}, &f); err != nil {
				return fmt.Errorf("failed to create tip flow: %w", err)
			}
			printFlow(f)
			return nil
		},
	}
	cmd.Flags().String(flagReferral, "", "Referral address")
	cmd.Flags().Int64(flagReferralFee, 0, "Referral fee, percent of the tip")
	cmd.Flags().String(flagTrack, "", "Tipper track, selected from the current rate when empty")
	return cmd
}

func getFlowsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get_flows",
		Short: "returns all flows with their active steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var flows []flowView
			if err = call(listenAddr, http.MethodGet, "/getFlows", nil, nil, &flows); err != nil {
				return fmt.Errorf("failed to get flows: %w", err)
			}
			for _, f := range flows {
				printFlow(f)
			}
			return nil
		},
	}
}

func getFlowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get_flow [flowID]",
		Args:  cobra.ExactArgs(1),
		Short: "returns the flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var f flowView
			if err = call(listenAddr, http.MethodGet, "/getFlow", flowQuery(args[0]), nil, &f); err != nil {
				return fmt.Errorf("failed to get flow: %w", err)
			}
			printFlow(f)
			return nil
		},
	}
}

func activeStepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "active_step [flowID]",
		Args:  cobra.ExactArgs(1),
		Short: "returns the step to act on with its transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var step activeStepView
			if err = call(listenAddr, http.MethodGet, "/getActiveStep", flowQuery(args[0]), nil, &step); err != nil {
				return fmt.Errorf("failed to get active step: %w", err)
			}
			fmt.Print(formatActiveStep(step))
			return nil
		},
	}
}

func estimateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [flowID]",
		Args:  cobra.ExactArgs(1),
		Short: "returns the deposits and fees the flow locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var estimate types.CostEstimate
			if err = call(listenAddr, http.MethodGet, "/getCostEstimate", flowQuery(args[0]), nil, &estimate); err != nil {
				return fmt.Errorf("failed to get cost estimate: %w", err)
			}
			fmt.Printf("Deposits: %s\n", estimate.Deposits)
			fees := estimate.Fees.String()
			if estimate.FeesApproximated {
				fees += yellow(" (not computed)")
			}
			fmt.Printf("Fees: %s\n", fees)
			fmt.Printf("Total: %s\n", bold(estimate.Total()))
			return nil
		},
	}
}

func submitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "submit [flowID] [step]",
		Args:  cobra.ExactArgs(2),
		Short: "signs and submits the transaction of the step, the following steps are chained",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var resp struct {
				AttemptID string `json:"attemptId"`
			}
			body := map[string]string{"flowID": args[0], "step": args[1]}
			if err = call(listenAddr, http.MethodPost, "/submitStep", nil, body, &resp); err != nil {
				return fmt.Errorf("failed to submit step: %w", err)
			}
			fmt.Printf("Attempt ID: %s\n", resp.AttemptID)
			return nil
		},
	}
}

func attemptsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "attempts [flowID]",
		Args:  cobra.ExactArgs(1),
		Short: "returns every submission attempt of the flow with its events",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var attempts []attemptView
			if err = call(listenAddr, http.MethodGet, "/getAttempts", flowQuery(args[0]), nil, &attempts); err != nil {
				return fmt.Errorf("failed to get attempts: %w", err)
			}
			for _, a := range attempts {
				if a.Superseded {
					fmt.Printf("Attempt %s of step %s %s\n", a.ID, a.Step, yellow("(superseded)"))
				} else {
					fmt.Printf("Attempt %s of step %s\n", a.ID, a.Step)
				}
				for _, e := range a.Events {
					fmt.Printf("\t%s %s\n", e.At.Format("15:04:05"), formatEvent(e))
				}
			}
			return nil
		},
	}
}

func referendumCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "referendum [flowID]",
		Args:  cobra.ExactArgs(1),
		Short: "returns the referendum index of the flow once it is created",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var index *uint32
			if err = call(listenAddr, http.MethodGet, "/getReferendumIndex", flowQuery(args[0]), nil, &index); err != nil {
				return fmt.Errorf("failed to get referendum index: %w", err)
			}
			if index == nil {
				fmt.Println("referendum is not created yet")
				return nil
			}
			fmt.Printf("Referendum: #%d\n", *index)
			return nil
		},
	}
}

func deleteFlowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete_flow [flowID]",
		Args:  cobra.ExactArgs(1),
		Short: "deletes a flow that has no live attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			if err = call(listenAddr, http.MethodPost, "/deleteFlow", nil, map[string]string{"flowID": args[0]}, nil); err != nil {
				return fmt.Errorf("failed to delete flow: %w", err)
			}
			fmt.Println("flow deleted")
			return nil
		},
	}
}

func rateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "returns the USD price of the native token",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var rate string
			if err = call(listenAddr, http.MethodGet, "/getRate", nil, nil, &rate); err != nil {
				return fmt.Errorf("failed to get rate: %w", err)
			}
			fmt.Printf("1 token = $%s\n", rate)
			return nil
		},
	}
}

func addressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "returns the signer address and its free balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var address addressView
			if err = call(listenAddr, http.MethodGet, "/getAddress", nil, nil, &address); err != nil {
				return fmt.Errorf("failed to get address: %w", err)
			}
			fmt.Printf("Address: %s (%s)\n", address.Address, address.Network)
			fmt.Printf("Free: %s\n", address.Free)
			return nil
		},
	}
}

func usernameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get_username",
		Short: "returns the username of the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var username string
			if err = call(listenAddr, http.MethodGet, "/getUsername", nil, nil, &username); err != nil {
				return fmt.Errorf("failed to get username: %w", err)
			}
			fmt.Println(username)
			return nil
		},
	}
}

func nextRfpTitleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next_rfp_title [projectTitle]",
		Args:  cobra.ExactArgs(1),
		Short: "returns the numbered bounty title the next RFP would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			var title string
			query := url.Values{"projectTitle": []string{args[0]}}
			if err = call(listenAddr, http.MethodGet, "/getNextRfpTitle", query, nil, &title); err != nil {
				return fmt.Errorf("failed to get title: %w", err)
			}
			fmt.Println(title)
			return nil
		},
	}
}
