package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldstone/caselog/internal/domain"
	"github.com/fieldstone/caselog/internal/export"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Manage case log records",
}

var addFlags struct {
	caseNumber    string
	examiner      string
	investigator  string
	agency        string
	city          string
	state         string
	startDate     string
	endDate       string
	volumeGB      float64
	offenseType   string
	deviceType    string
	model         string
	osName        string
	dataRecovered string
	fprComplete   bool
	notes         string
}

var casesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a case to the log",
	RunE:  runCasesAdd,
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cases",
	RunE:  runCasesList,
}

var exportPath string

var casesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all cases to an XLSX workbook",
	RunE:  runCasesExport,
}

var importPath string

var casesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import cases from an XLSX workbook",
	Long:  `Merge the workbook's rows into the case log: new case numbers are added, existing ones are updated when any field differs, and unchanged rows are skipped.`,
	RunE:  runCasesImport,
}

var statsBy string

var casesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show case counts per offense type or agency",
	RunE:  runCasesStats,
}

func init() {
	f := casesAddCmd.Flags()
	f.StringVar(&addFlags.caseNumber, "case-number", "", "Unique case number (required)")
	f.StringVar(&addFlags.examiner, "examiner", "", "Examiner name")
	f.StringVar(&addFlags.investigator, "investigator", "", "Investigator name")
	f.StringVar(&addFlags.agency, "agency", "", "Submitting agency")
	f.StringVar(&addFlags.city, "city", "", "City of offense")
	f.StringVar(&addFlags.state, "state", "", "State of offense")
	f.StringVar(&addFlags.startDate, "start-date", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&addFlags.endDate, "end-date", "", "End date (YYYY-MM-DD)")
	f.Float64Var(&addFlags.volumeGB, "volume-gb", 0, "Evidence volume in GB")
	f.StringVar(&addFlags.offenseType, "offense-type", "", "Offense type")
	f.StringVar(&addFlags.deviceType, "device-type", "", "Device type")
	f.StringVar(&addFlags.model, "model", "", "Device model")
	f.StringVar(&addFlags.osName, "os", "", "Device operating system")
	f.StringVar(&addFlags.dataRecovered, "data-recovered", "", `Data recovered ("Yes", "No", or empty)`)
	f.BoolVar(&addFlags.fprComplete, "fpr-complete", false, "Forensic processing report complete")
	f.StringVar(&addFlags.notes, "notes", "", "Free-form notes")
	cobra.CheckErr(casesAddCmd.MarkFlagRequired("case-number"))

	casesExportCmd.Flags().StringVarP(&exportPath, "output", "o", "caselog.xlsx", "Output file path")
	casesImportCmd.Flags().StringVarP(&importPath, "input", "i", "", "Workbook to import (required)")
	cobra.CheckErr(casesImportCmd.MarkFlagRequired("input"))
	casesStatsCmd.Flags().StringVar(&statsBy, "by", "offense", `Aggregation: "offense" or "agency"`)

	casesCmd.AddCommand(casesAddCmd)
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesExportCmd)
	casesCmd.AddCommand(casesImportCmd)
	casesCmd.AddCommand(casesStatsCmd)
}

func runCasesAdd(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	id, err := a.store.AddCase(cmd.Context(), domain.Case{
		CaseNumber:     addFlags.caseNumber,
		Examiner:       addFlags.examiner,
		Investigator:   addFlags.investigator,
		Agency:         addFlags.agency,
		CityOfOffense:  addFlags.city,
		StateOfOffense: addFlags.state,
		StartDate:      addFlags.startDate,
		EndDate:        addFlags.endDate,
		VolumeSizeGB:   addFlags.volumeGB,
		OffenseType:    addFlags.offenseType,
		DeviceType:     addFlags.deviceType,
		Model:          addFlags.model,
		OS:             addFlags.osName,
		DataRecovered:  addFlags.dataRecovered,
		FPRComplete:    addFlags.fprComplete,
		Notes:          addFlags.notes,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Case %s added (id %d)\n", addFlags.caseNumber, id)
	return nil
}

func runCasesList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cases, err := a.store.GetAllCases(cmd.Context())
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		fmt.Println("No cases recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCASE #\tEXAMINER\tAGENCY\tCITY\tSTATE\tOFFENSE\tSTART")
	for _, c := range cases {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.CaseNumber, c.Examiner, c.Agency,
			c.CityOfOffense, c.StateOfOffense, c.OffenseType, c.StartDate)
	}
	return w.Flush()
}

func runCasesExport(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cases, err := a.store.GetAllCases(cmd.Context())
	if err != nil {
		return err
	}

	f, err := os.Create(exportPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportPath, err)
	}
	defer f.Close()

	if err := export.WriteCases(f, cases); err != nil {
		return err
	}

	fmt.Printf("Exported %d cases to %s\n", len(cases), exportPath)
	return nil
}

func runCasesImport(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Open(importPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", importPath, err)
	}
	defer f.Close()

	stats, err := export.ImportCases(cmd.Context(), f, a.store, a.logger)
	if err != nil {
		return err
	}

	fmt.Printf("Import complete: %d added, %d updated, %d skipped, %d failed\n",
		stats.Imported, stats.Updated, stats.Skipped, stats.Failed)
	return nil
}

func runCasesStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var counts []domain.CategoryCount
	switch statsBy {
	case "offense":
		counts, err = a.store.CountByOffenseType(cmd.Context())
	case "agency":
		counts, err = a.store.CountByAgency(cmd.Context())
	default:
		return fmt.Errorf("unknown aggregation %q (want offense or agency)", statsBy)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range counts {
		label := c.Label
		if label == "" {
			label = "(unspecified)"
		}
		fmt.Fprintf(w, "%s\t%d\n", label, c.Count)
	}
	return w.Flush()
}
