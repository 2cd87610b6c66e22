package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/maternity/internal/domain/consultation"
	"github.com/ehr/maternity/internal/domain/interpret"
	"github.com/ehr/maternity/internal/domain/treatment"
	"github.com/ehr/maternity/internal/platform/store"
)

// -- interpret --

func interpretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "Interpret clinical measurements",
	}
	cmd.PersistentFlags().Bool("json", false, "Print results as JSON")

	act := &cobra.Command{
		Use:   "act NAME VALUE",
		Short: "Interpret a laboratory result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refRange, _ := cmd.Flags().GetString("range")
			return printResults(cmd, []interpret.Result{interpret.Interpret(args[0], args[1], refRange)})
		},
	}
	act.Flags().String("range", "", "Reference range, e.g. 3.5-5.0, <10, >60")
	cmd.AddCommand(act)

	vitals := &cobra.Command{
		Use:   "vitals",
		Short: "Interpret maternal and fetal vital signs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var v interpret.Vitals
			v.BloodPressure, _ = cmd.Flags().GetString("bp")
			for flag, dst := range map[string]**float64{"temp": &v.Temperature, "hr": &v.HeartRate, "fhr": &v.FetalHeartRate} {
				if cmd.Flags().Changed(flag) {
					f, _ := cmd.Flags().GetFloat64(flag)
					*dst = &f
				}
			}
			results := interpret.AnalyzeVitals(v)
			if len(results) == 0 {
				return fmt.Errorf("no vital sign given")
			}
			return printResults(cmd, results)
		},
	}
	vitals.Flags().String("bp", "", "Blood pressure as systolic/diastolic")
	vitals.Flags().Float64("temp", 0, "Temperature in °C")
	vitals.Flags().Float64("hr", 0, "Maternal heart rate in bpm")
	vitals.Flags().Float64("fhr", 0, "Fetal heart rate in bpm")
	cmd.AddCommand(vitals)

	scan := &cobra.Command{
		Use:   "ultrasound KIND=VALUE...",
		Short: "Interpret ultrasound measurements in mm",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := parseMeasurements(args)
			if err != nil {
				return err
			}
			var ga *float64
			if cmd.Flags().Changed("ga") {
				w, _ := cmd.Flags().GetFloat64("ga")
				ga = &w
			}
			return printResults(cmd, interpret.AnalyzeUltrasound(ms, ga))
		},
	}
	scan.Flags().Float64("ga", 0, "Gestational age in weeks")
	cmd.AddCommand(scan)

	return cmd
}

func parseMeasurements(args []string) ([]interpret.Measurement, error) {
	out := make([]interpret.Measurement, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndexByte(arg, '=')
		if i < 0 {
			return nil, fmt.Errorf("%q: expected KIND=VALUE", arg)
		}
		name, raw := arg[:i], arg[i+1:]
		kind, known := interpret.ParseKind(name)
		if !known {
			return nil, fmt.Errorf("unknown measurement %q", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, interpret.Measurement{Kind: kind, Value: v})
	}
	return out, nil
}

func printResults(cmd *cobra.Command, results []interpret.Result) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEASUREMENT\tVALUE\tSTATUS\tINTERPRETATION")
	for _, r := range results {
		name := r.Name
		if name == "" {
			name = string(r.Kind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, r.Value, r.Status, r.Interpretation)
	}
	return tw.Flush()
}

// -- consultations --

func consultationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consultations",
		Short: "Browse consultations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the consultations of a pregnancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			pregnancyID, _ := cmd.Flags().GetString("pregnancy")
			keyword, _ := cmd.Flags().GetString("keyword")

			s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := s.Consultations.LoadByParent(cmd.Context(), pregnancyID)
			if err != nil {
				return err
			}
			if res.Status == store.ParentFailed {
				return fmt.Errorf("consultations unavailable: %s", res.Reason)
			}

			items := res.Items
			if keyword != "" {
				folded := interpret.Fold(keyword)
				items = store.Filter(items, func(c consultation.Consultation) bool {
					return strings.Contains(interpret.Fold(c.Observation), folded)
				})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tOBSERVATION")
			for _, c := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Date.Format("2006-01-02"), c.Observation)
			}
			return tw.Flush()
		},
	}
	list.Flags().String("pregnancy", "", "Pregnancy id")
	list.Flags().String("keyword", "", "Only consultations whose observation mentions keyword")
	_ = list.MarkFlagRequired("pregnancy")
	cmd.AddCommand(list)

	return cmd
}

// -- treatments --

func treatmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treatments",
		Short: "Work with prescribed treatments",
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Export the treatments of a consultation to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			consultationID, _ := cmd.Flags().GetString("consultation")
			out, _ := cmd.Flags().GetString("out")

			s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := s.Treatments.LoadByParent(cmd.Context(), consultationID)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := s.TreatmentTools.ExportExcel(f, res.Items); err != nil {
				return err
			}
			now := time.Now()
			active := store.Count(res.Items, func(t treatment.Treatment) bool { return t.ActiveOn(now) })
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d treatment(s), %d active today, to %s\n", len(res.Items), active, out)
			return nil
		},
	}
	export.Flags().String("consultation", "", "Consultation id")
	export.Flags().String("out", "treatments.xlsx", "Output file")
	_ = export.MarkFlagRequired("consultation")
	cmd.AddCommand(export)

	return cmd
}
