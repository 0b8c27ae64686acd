package webscan

import "regexp"

// techSignature detects a framework or service from the page body. Patterns
// run against the raw HTML, so they match script srcs, meta tags, and inlined
// bundle fragments alike.
type techSignature struct {
	name    string
	pattern *regexp.Regexp
}

var techSignatures = []techSignature{
	{"LangChain", regexp.MustCompile(`(?i)langchain`)},
	{"OpenAI API", regexp.MustCompile(`(?i)api\.openai\.com|openai`)},
	{"Anthropic", regexp.MustCompile(`(?i)api\.anthropic\.com|anthropic|claude`)},
	{"Vercel AI SDK", regexp.MustCompile(`(?i)ai-sdk|vercel/ai`)},
	{"HuggingFace", regexp.MustCompile(`(?i)huggingface|hf\.co`)},
	{"Pinecone", regexp.MustCompile(`(?i)pinecone`)},
	{"Replicate", regexp.MustCompile(`(?i)replicate\.com`)},
	{"React", regexp.MustCompile(`(?i)react(-dom)?(\.production)?(\.min)?\.js|data-reactroot|__NEXT_DATA__`)},
	{"Tailwind CSS", regexp.MustCompile(`(?i)tailwind`)},
	{"TensorFlow.js", regexp.MustCompile(`(?i)tensorflow|tfjs`)},
	{"PyTorch", regexp.MustCompile(`(?i)pytorch|torchserve`)},
}

// detectTechStack returns the named technologies found in the body, in
// signature order.
func detectTechStack(body string) []string {
	var detected []string
	for _, sig := range techSignatures {
		if sig.pattern.MatchString(body) {
			detected = append(detected, sig.name)
		}
	}
	return detected
}

// Exposed model-provider credentials in a served page are a high severity
// finding on their own.
var exposedKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`hf_[A-Za-z0-9]{30,}`),
}

func hasExposedAPIKey(body string) bool {
	for _, pattern := range exposedKeyPatterns {
		if pattern.MatchString(body) {
			return true
		}
	}
	return false
}

// aiEndpointPattern flags inference endpoints referenced directly from the
// page, which usually means the key rides along in client-side code.
var aiEndpointPattern = regexp.MustCompile(`(?i)(api\.openai\.com|api\.anthropic\.com|api-inference\.huggingface\.co|generativelanguage\.googleapis\.com)`)

func referencesAIEndpoint(body string) bool {
	return aiEndpointPattern.MatchString(body)
}
