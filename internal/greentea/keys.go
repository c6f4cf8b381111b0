package greentea

// Well-known record keys.
const (
	KeySync         = "__sync"
	KeyTimeout      = "__timeout"
	KeyHostTestName = "__host_test_name"
	KeyExit         = "__exit"

	KeyTestcaseCount   = "__testcase_count"
	KeyTestcaseName    = "__testcase_name"
	KeyTestcaseStart   = "__testcase_start"
	KeyTestcaseFinish  = "__testcase_finish"
	KeyTestcaseSummary = "__testcase_summary"

	KeyEnd = "end"
)

// Suite results sent with KeyEnd.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// DefaultHostTest is the host test used when none is configured.
const DefaultHostTest = "default_auto"
