package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("text", true)

	if !strings.Contains(script, hookMarkerStart) {
		t.Error("Script missing start marker")
	}
	if !strings.Contains(script, hookMarkerEnd) {
		t.Error("Script missing end marker")
	}
	if !strings.Contains(script, "codefox scan --staged --fail-on-findings --format text") {
		t.Error("Script missing codefox command with correct flags")
	}
	if !strings.Contains(script, "CODEFOX_EXIT=$?") {
		t.Error("Script missing exit code capture")
	}
	if !strings.Contains(script, "exit 1") {
		t.Error("Script missing exit 1 for findings")
	}
	if !strings.Contains(script, "allowing commit") {
		t.Error("Script missing warning for errors")
	}
}

func TestGenerateHookScript_NoBlock(t *testing.T) {
	script := generateHookScript("json", false)

	if !strings.Contains(script, "--format json") {
		t.Error("Script doesn't use custom format")
	}
	if strings.Contains(script, "exit 1") {
		t.Error("Non-blocking hook should not fail the commit")
	}
}

func TestReplaceHookSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript("text", true)

	result := replaceHookSection(existing, section)

	if !strings.HasPrefix(result, "#!/bin/sh\nsome-other-hook\n") {
		t.Error("Existing content should be preserved")
	}
	if !strings.Contains(result, hookMarkerStart) {
		t.Error("New section should be appended")
	}
}

func TestReplaceHookSection_ExistingSection(t *testing.T) {
	oldSection := generateHookScript("markdown", false)
	existing := "#!/bin/sh\nbefore\n" + oldSection + "after\n"
	newSection := generateHookScript("json", true)

	result := replaceHookSection(existing, newSection)

	if !strings.Contains(result, "before") {
		t.Error("Content before codefox section should be preserved")
	}
	if !strings.Contains(result, "after") {
		t.Error("Content after codefox section should be preserved")
	}
	if !strings.Contains(result, "--format json") {
		t.Error("New section should have updated flags")
	}
	if strings.Contains(result, "--format markdown") {
		t.Error("Old section should be replaced")
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("Exactly one codefox section expected")
	}
}

func TestRemoveHookSection(t *testing.T) {
	section := generateHookScript("text", true)
	existing := "#!/bin/sh\nbefore\n" + section + "after\n"

	result := removeHookSection(existing)

	if strings.Contains(result, hookMarkerStart) {
		t.Error("Codefox section should be removed")
	}
	if result != "#!/bin/sh\nbefore\nafter\n" {
		t.Errorf("result = %q", result)
	}
}

func TestRemoveHookSection_NoSection(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook\n"
	result := removeHookSection(existing)
	if result != existing {
		t.Error("Content without codefox section should be unchanged")
	}
}

func TestReplaceHookSection_NoTrailingNewline(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook"
	section := generateHookScript("text", true)

	result := replaceHookSection(existing, section)

	if !strings.Contains(result, "some-hook\n"+hookMarkerStart) {
		t.Error("Section should be appended on a new line")
	}
}

func TestHookInstallUninstall(t *testing.T) {
	dir := gitRepo(t)
	hookPath := filepath.Join(dir, ".git", "hooks", "pre-commit")

	resetFlags()
	hookFormat, hookBlock = "text", true
	if _, err := execute(t, hookInstallCmd); err != nil {
		t.Fatalf("install returned error: %v", err)
	}
	data, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("hook not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh\n"+hookMarkerStart) {
		t.Errorf("hook content:\n%s", data)
	}
	if info, _ := os.Stat(hookPath); info.Mode()&0o111 == 0 {
		t.Error("hook should be executable")
	}

	// Reinstalling keeps a single section.
	if _, err := execute(t, hookInstallCmd); err != nil {
		t.Fatalf("reinstall returned error: %v", err)
	}
	data, _ = os.ReadFile(hookPath)
	if strings.Count(string(data), hookMarkerStart) != 1 {
		t.Errorf("reinstall duplicated the section:\n%s", data)
	}

	out, err := execute(t, hookUninstallCmd)
	if err != nil {
		t.Fatalf("uninstall returned error: %v", err)
	}
	if !strings.Contains(out, "Removed codefox pre-commit hook") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Error("hook file holding only the codefox section should be deleted")
	}
}

func TestHookUninstall_KeepsOtherHooks(t *testing.T) {
	dir := gitRepo(t)
	hookPath := filepath.Join(dir, ".git", "hooks", "pre-commit")
	writeFile(t, hookPath, "#!/bin/sh\nmake lint\n")

	resetFlags()
	hookFormat, hookBlock = "text", true
	if _, err := execute(t, hookInstallCmd); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, hookUninstallCmd); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/sh\nmake lint\n" {
		t.Errorf("hook content = %q", data)
	}
}
