package scanning

// Mode selects which instruction template and output schema apply to a
// classification request.
type Mode string

const (
	ModePromptScan  Mode = "prompt_scan"
	ModeChat        Mode = "chat"
	ModeLogAnalysis Mode = "log_analysis"
	ModeCodeScan    Mode = "code_scan"
	ModeWebsiteScan Mode = "website_scan"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModePromptScan, ModeChat, ModeLogAnalysis, ModeCodeScan, ModeWebsiteScan:
		return true
	}
	return false
}

// SupportsWarning reports whether the mode's verdict set includes WARNING.
// The prompt surface is binary SAFE/BLOCKED.
func (m Mode) SupportsWarning() bool {
	return m == ModeLogAnalysis || m == ModeCodeScan
}
