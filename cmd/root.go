package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "certrag",
	Short: "Retrieval-augmented QA over uploaded study materials",
	Long: `certrag ingests study materials (PDF, DOCX) from object storage,
chunks and embeds them into a vector index, and answers questions by
retrieving the nearest chunks and conditioning a generative model on
them.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	settingDefaultConfig()
}
