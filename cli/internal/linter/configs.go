package linter

import (
	"os"
	"path/filepath"
)

// Opinionated but safe default configurations written into an environment
// when absent, so analyzers behave the same regardless of what the target
// repository carries.

const flake8Config = `[flake8]
max-line-length = 88
extend-ignore = E203, W503
exclude = .git,__pycache__,build,dist,.venv,venv,node_modules
per-file-ignores =
    __init__.py:F401
    tests/*:S101,S105,S106,S107
`

const blackConfig = `[tool.black]
line-length = 88
target-version = ['py38']
`

const eslintConfig = `{
  "env": { "browser": true, "es2021": true, "node": true },
  "extends": ["eslint:recommended"],
  "parserOptions": { "ecmaVersion": "latest", "sourceType": "module" },
  "rules": {
    "indent": ["error", 2],
    "quotes": ["error", "single"],
    "semi": ["error", "always"],
    "no-unused-vars": "error",
    "no-console": "warn"
  }
}
`

const prettierConfig = `{
  "semi": true,
  "singleQuote": true,
  "printWidth": 88
}
`

const yamllintConfig = `extends: default

rules:
  line-length:
    max: 88
    level: warning
  indentation:
    spaces: 2
`

const golangciConfig = `run:
  timeout: 5m
  modules-download-mode: readonly

linters:
  enable:
    - gofmt
    - goimports
    - govet
    - errcheck
    - staticcheck
    - unused
    - ineffassign
    - misspell
    - gosec
    - lll

linters-settings:
  misspell:
    locale: US
  lll:
    line-length: 140
`

const cargoManifest = `[package]
name = "codefixer-rust"
version = "0.1.0"
edition = "2021"

[dependencies]
`

const pmdRuleset = `<?xml version="1.0"?>
<ruleset name="CodeFixer PMD Rules"
         xmlns="http://pmd.sourceforge.net/ruleset/2.0.0"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://pmd.sourceforge.net/ruleset/2.0.0 https://pmd.sourceforge.io/ruleset_2_0_0.xsd">

    <description>Java rules for automated triage</description>

    <rule ref="category/java/bestpractices.xml"/>
    <rule ref="category/java/codestyle.xml"/>
    <rule ref="category/java/design.xml"/>
    <rule ref="category/java/documentation.xml"/>
    <rule ref="category/java/errorprone.xml"/>
    <rule ref="category/java/multithreading.xml"/>
    <rule ref="category/java/performance.xml"/>
    <rule ref="category/java/security.xml"/>

    <rule ref="category/java/codestyle.xml/AtLeastOneConstructor">
        <priority>4</priority>
    </rule>
    <rule ref="category/java/codestyle.xml/OnlyOneReturn">
        <priority>4</priority>
    </rule>
    <rule ref="category/java/codestyle.xml/TooManyStaticImports">
        <priority>4</priority>
    </rule>

    <exclude-pattern>**/test/**</exclude-pattern>
    <exclude-pattern>**/tests/**</exclude-pattern>
    <exclude-pattern>**/*Test.java</exclude-pattern>
    <exclude-pattern>**/*Tests.java</exclude-pattern>

</ruleset>
`

const checkstyleConfig = `<?xml version="1.0"?>
<!DOCTYPE module PUBLIC
          "-//Checkstyle//DTD Checkstyle Configuration 1.3//EN"
          "https://checkstyle.org/dtds/configuration_1_3.dtd">

<module name="Checker">
    <property name="charset" value="UTF-8"/>
    <property name="severity" value="warning"/>
    <property name="fileExtensions" value="java, properties, xml"/>

    <module name="BeforeExecutionExclusionFileFilter">
        <property name="fileNamePattern" value=".*Test\.java$"/>
    </module>
    <module name="BeforeExecutionExclusionFileFilter">
        <property name="fileNamePattern" value=".*Tests\.java$"/>
    </module>

    <module name="TreeWalker">
        <module name="ConstantName"/>
        <module name="LocalVariableName"/>
        <module name="MemberName"/>
        <module name="MethodName"/>
        <module name="PackageName"/>
        <module name="ParameterName"/>
        <module name="TypeName"/>
        <module name="AvoidStarImport"/>
        <module name="RedundantImport"/>
        <module name="UnusedImports"/>
        <module name="MethodLength">
            <property name="max" value="150"/>
        </module>
        <module name="ParameterNumber">
            <property name="max" value="7"/>
        </module>
        <module name="GenericWhitespace"/>
        <module name="MethodParamPad"/>
        <module name="NoWhitespaceAfter"/>
        <module name="NoWhitespaceBefore"/>
        <module name="ParenPad"/>
        <module name="WhitespaceAfter"/>
    </module>
</module>
`

const stylelintConfig = `{
  "extends": "stylelint-config-standard",
  "rules": {
    "color-hex-length": "short",
    "declaration-block-no-duplicate-properties": true
  }
}
`

const htmlhintConfig = `{
  "tagname-lowercase": true,
  "attr-lowercase": true,
  "doctype-first": true,
  "id-unique": true,
  "src-not-empty": true,
  "attr-value-double-quotes": true,
  "attr-no-duplication": true,
  "title-require": true
}
`

// writeConfig writes content to dir/name unless the file already exists.
func writeConfig(dir, name, content string) error {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func writePythonConfigs(dir string) error {
	if err := writeConfig(dir, ".flake8", flake8Config); err != nil {
		return err
	}
	return writeConfig(dir, "pyproject.toml", blackConfig)
}

func writeJSConfigs(dir string) error {
	if err := writeConfig(dir, ".eslintrc.json", eslintConfig); err != nil {
		return err
	}
	return writeConfig(dir, ".prettierrc", prettierConfig)
}

func writeYamlConfigs(dir string) error {
	return writeConfig(dir, ".yamllint", yamllintConfig)
}

func writeGoConfigs(dir string) error {
	return writeConfig(dir, ".golangci.yml", golangciConfig)
}

func writeJavaConfigs(dir string) error {
	if err := writeConfig(dir, "pmd-ruleset.xml", pmdRuleset); err != nil {
		return err
	}
	return writeConfig(dir, "checkstyle.xml", checkstyleConfig)
}

func writeCSSConfigs(dir string) error {
	return writeConfig(dir, ".stylelintrc.json", stylelintConfig)
}

func writeHTMLConfigs(dir string) error {
	return writeConfig(dir, ".htmlhintrc", htmlhintConfig)
}
