// Package e2e contains end-to-end tests exercising the full HTTP pipeline.
package e2e

// CorpusDoc is one document in the test corpus.
type CorpusDoc struct {
	Filename string
	Content  string
}

// QueryCase is a retrieval expectation: the query should surface at least
// one chunk from the named files.
type QueryCase struct {
	Description       string
	Query             string
	ExpectedFilenames []string
}

// Corpus bundles documents and query cases.
type Corpus struct {
	Documents []CorpusDoc
	TestCases []QueryCase
}

// BuildCorpus returns a small fixed corpus. Each document carries distinctive
// terms so keyword retrieval has an unambiguous target.
func BuildCorpus() *Corpus {
	return &Corpus{
		Documents: []CorpusDoc{
			{
				Filename: "deploy.md",
				Content: "Deployment guide. Run the terraform apply step before promoting " +
					"the release. Rollbacks use the blue-green switcher in the gateway. " +
					"Never promote on Fridays without an incident commander on call.",
			},
			{
				Filename: "billing.txt",
				Content: "Billing overview. Invoices are generated on the first of the month. " +
					"Proration applies when a subscription is upgraded mid-cycle. Refunds " +
					"beyond ninety days require finance approval.",
			},
			{
				Filename: "onboarding.txt",
				Content: "Onboarding checklist for new engineers. Request VPN access, join " +
					"the standup rotation, and pair with your onboarding buddy during the " +
					"first sprint. Laptops ship with disk encryption enabled.",
			},
			{
				Filename: "api.md",
				Content: "API reference. Authentication uses bearer tokens with a scoped " +
					"audience claim. Rate limiting returns status 429 with a Retry-After " +
					"header. Pagination cursors expire after fifteen minutes.",
			},
			{
				Filename: "oncall.txt",
				Content: "On-call handbook. Page the secondary when an alert stays " +
					"unacknowledged for ten minutes. Postmortems are blameless and due " +
					"within five working days of the incident.",
			},
		},
		TestCases: []QueryCase{
			{
				Description:       "deployment rollback",
				Query:             "blue-green rollback",
				ExpectedFilenames: []string{"deploy.md"},
			},
			{
				Description:       "invoice schedule",
				Query:             "invoices proration",
				ExpectedFilenames: []string{"billing.txt"},
			},
			{
				Description:       "new engineer setup",
				Query:             "onboarding VPN checklist",
				ExpectedFilenames: []string{"onboarding.txt"},
			},
			{
				Description:       "rate limit behavior",
				Query:             "rate limiting Retry-After",
				ExpectedFilenames: []string{"api.md"},
			},
			{
				Description:       "paging escalation",
				Query:             "page the secondary unacknowledged alert",
				ExpectedFilenames: []string{"oncall.txt"},
			},
		},
	}
}
