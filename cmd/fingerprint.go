package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viewlulu/pouch-backend/internal/fingerprint"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <image> [other-image]",
	Short: "Compute an image fingerprint, or compare two images",
	Long: `Compute the perceptual fingerprint of an image file and print it as hex.
With two images, also print the Hamming distance between them. Useful for
tuning the detection threshold against real photos.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFingerprint,
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

func hashFile(hasher fingerprint.Hasher, path string) (fingerprint.Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("reading %s: %w", path, err)
	}
	fp, err := hasher.Compute(data)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	return fp, nil
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	hasher := fingerprint.DefaultHasher()

	first, err := hashFile(hasher, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", first.String(), args[0])

	if len(args) == 2 {
		second, err := hashFile(hasher, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", second.String(), args[1])
		fmt.Printf("distance: %d/%d\n", fingerprint.Distance(first, second), first.Len())
	}
	return nil
}
