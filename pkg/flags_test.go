package dupegraph

import "testing"

func TestSetDebugFlags(t *testing.T) {
	defer SetDebugFlags("")

	SetDebugFlags("extravalidation,scan")
	if !IsDebugEnabled("extravalidation") {
		t.Error("Expected extravalidation to be enabled")
	}
	if !IsDebugEnabled("scan") {
		t.Error("Expected scan to be enabled")
	}
	if IsDebugEnabled("other") {
		t.Error("Expected unlisted flag to be disabled")
	}
}

func TestSetDebugFlags_KeyValue(t *testing.T) {
	defer SetDebugFlags("")

	SetDebugFlags("scan:true,extravalidation:false,weird:banana")
	if !IsDebugEnabled("scan") {
		t.Error("Expected scan:true to enable the flag")
	}
	if IsDebugEnabled("extravalidation") {
		t.Error("Expected extravalidation:false to disable the flag")
	}
	// Unknown values default to enabled
	if !IsDebugEnabled("weird") {
		t.Error("Expected unknown value to default to enabled")
	}
}

func TestSetDebugFlags_CaseAndWhitespace(t *testing.T) {
	defer SetDebugFlags("")

	SetDebugFlags(" Scan , EXTRAVALIDATION ")
	if !IsDebugEnabled("scan") || !IsDebugEnabled("ExtraValidation") {
		t.Error("Flag matching should be case-insensitive and trim whitespace")
	}
}

func TestIsDebugEnabled_Unset(t *testing.T) {
	SetDebugFlags("")
	if IsDebugEnabled("anything") {
		t.Error("No flags should be enabled after resetting")
	}
}
