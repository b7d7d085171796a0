package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blissito/formmy-agent-core/internal/plan"
)

func testRegistry() *Registry {
	return NewRegistry(&Deps{
		Leads:    &fakeLeads{},
		Searcher: &fakeSearcher{},
		Web:      &fakeWeb{},
		Payments: &fakePayments{url: "https://pay.example/x"},
		Parser:   &fakeParser{},
		Cache:    newMemCache(),
		Blobs:    newMemBlobs(),
	})
}

func names(set []Tool) []string {
	out := make([]string, 0, len(set))
	for _, t := range set {
		out = append(out, t.Name)
	}
	return out
}

func TestToolsForAnonymousGetsSearchOnly(t *testing.T) {
	set := testRegistry().ToolsFor(plan.Anonymous, nil, false)
	assert.Equal(t, []string{ToolSearchContext}, names(set))
}

func TestToolsForFreeGetsSearchOnly(t *testing.T) {
	set := testRegistry().ToolsFor(plan.Free, nil, false)
	assert.Equal(t, []string{ToolSearchContext}, names(set))
}

func TestToolsForStarterGetsTenantLocalTools(t *testing.T) {
	set := testRegistry().ToolsFor(plan.Starter, map[string]bool{IntegrationStripe: true}, false)
	assert.ElementsMatch(t,
		[]string{ToolSearchContext, ToolSaveLead, ToolGetCurrentTime},
		names(set))
}

func TestToolsForPaidPlanFiltersByIntegration(t *testing.T) {
	r := testRegistry()

	// Without stripe the payment tool is withheld.
	set := r.ToolsFor(plan.Pro, nil, false)
	assert.NotContains(t, names(set), ToolCreatePaymentLink)
	assert.Contains(t, names(set), ToolWebSearch)
	assert.Contains(t, names(set), ToolScheduleReminder)
	assert.Contains(t, names(set), ToolParseDocument)

	// With stripe connected it appears.
	set = r.ToolsFor(plan.Pro, map[string]bool{IntegrationStripe: true}, false)
	assert.Contains(t, names(set), ToolCreatePaymentLink)
}

func TestToolsForNeverOffersPlatformToolToTenants(t *testing.T) {
	set := testRegistry().ToolsFor(plan.Enterprise, map[string]bool{IntegrationStripe: true}, false)
	assert.NotContains(t, names(set), ToolGeneratePlanPaymentLink)
}

func TestToolsForPlatformAssistantExcludesTenantTools(t *testing.T) {
	set := testRegistry().ToolsFor(plan.Pro, nil, true)

	got := names(set)
	assert.NotContains(t, got, ToolSaveLead)
	assert.NotContains(t, got, ToolCreatePaymentLink)
	assert.NotContains(t, got, ToolScheduleReminder)
	assert.NotContains(t, got, ToolParseDocument)
	assert.Contains(t, got, ToolGeneratePlanPaymentLink)
	assert.Contains(t, got, ToolSearchContext)
}

func TestToolsForPlatformAssistantUpgradeLinkBypassesPlanGating(t *testing.T) {
	// Ghosty talks to unpaid users about upgrading; the upgrade tool must be
	// there even though their plan would never qualify for it.
	set := testRegistry().ToolsFor(plan.Free, nil, true)
	assert.Contains(t, names(set), ToolGeneratePlanPaymentLink)
}

func TestFindAndInfos(t *testing.T) {
	set := testRegistry().ToolsFor(plan.Pro, nil, false)

	tool, found := Find(set, ToolWebSearch)
	require.True(t, found)
	assert.Equal(t, ToolWebSearch, tool.Name)

	_, found = Find(set, ToolGeneratePlanPaymentLink)
	assert.False(t, found)

	infos := Infos(set)
	require.Len(t, infos, len(set))
	for i, info := range infos {
		assert.Equal(t, set[i].Name, info.Name)
	}
}
