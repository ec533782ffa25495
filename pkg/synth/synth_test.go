package synth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stackwright/stackwright/pkg/stack"
	"github.com/stackwright/stackwright/pkg/token"
)

func buildTwoStackApp(t *testing.T) (*stack.App, *stack.Stack, *stack.Stack) {
	t.Helper()
	app := stack.NewApp(stack.AppProps{Context: map[string]string{
		stack.ContextAccount: "111111111111",
		stack.ContextRegion:  "us-east-1",
	}})

	data, err := stack.NewStack(app, "data", stack.StackProps{Description: "data layer"})
	require.NoError(t, err)
	table, err := data.AddResource("orders", "AWS::DynamoDB::Table", map[string]any{
		"BillingMode": "PAY_PER_REQUEST",
	})
	require.NoError(t, err)

	api, err := stack.NewStack(app, "api", stack.StackProps{Description: "api layer"})
	require.NoError(t, err)
	_, err = api.AddResource("handler", "AWS::Lambda::Function", map[string]any{
		"Runtime": "provided.al2",
		"Environment": map[string]any{
			"Variables": map[string]any{"TABLE_ARN": table.GetAtt("Arn")},
		},
	})
	require.NoError(t, err)

	return app, data, api
}

func TestSynthesize(t *testing.T) {
	app, _, _ := buildTwoStackApp(t)

	asm, err := Synthesize(app, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, asm.Manifest.ID)
	assert.Equal(t, ManifestVersion, asm.Manifest.Version)
	require.Len(t, asm.Manifest.Stacks, 2)

	// Producer deploys first; consumer records the dependency.
	assert.Equal(t, "data", asm.Manifest.Stacks[0].Name)
	assert.Equal(t, "api", asm.Manifest.Stacks[1].Name)
	assert.Equal(t, []string{"data"}, asm.Manifest.Stacks[1].DependsOn)
	assert.Empty(t, asm.Manifest.Stacks[0].DependsOn)

	for _, artifact := range asm.Manifest.Stacks {
		assert.Equal(t, "111111111111", artifact.Account)
		assert.Equal(t, "us-east-1", artifact.Region)
	}

	assert.Equal(t,
		[]string{"api.template.yaml", "data.template.yaml", "manifest.yaml"},
		asm.Files())

	apiTemplate, ok := asm.File("api.template.yaml")
	require.True(t, ok)
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(apiTemplate, &parsed))
	assert.Contains(t, string(apiTemplate), "Fn::ImportValue")

	dataTemplate, _ := asm.File("data.template.yaml")
	assert.Contains(t, string(dataTemplate), "Fn::GetAtt")
	assert.Contains(t, string(dataTemplate), "Export")
}

func TestSynthesize_chainedStacksListDirectPrerequisites(t *testing.T) {
	app := stack.NewApp(stack.AppProps{})

	data, err := stack.NewStack(app, "data", stack.StackProps{})
	require.NoError(t, err)
	table, err := data.AddResource("orders", "AWS::DynamoDB::Table", nil)
	require.NoError(t, err)

	mid, err := stack.NewStack(app, "mid", stack.StackProps{})
	require.NoError(t, err)
	queue, err := mid.AddResource("queue", "AWS::SQS::Queue", map[string]any{
		"TableArn": table.GetAtt("Arn"),
	})
	require.NoError(t, err)

	api, err := stack.NewStack(app, "api", stack.StackProps{})
	require.NoError(t, err)
	_, err = api.AddResource("handler", "AWS::Lambda::Function", map[string]any{
		"QueueUrl": queue.Ref(),
	})
	require.NoError(t, err)

	asm, err := Synthesize(app, Options{})
	require.NoError(t, err)

	byName := make(map[string]StackArtifact)
	for _, artifact := range asm.Manifest.Stacks {
		byName[artifact.Name] = artifact
	}

	// Each manifest entry names only the stacks it imports from; "api" must
	// not list "data" even though data deploys before the whole chain.
	assert.Empty(t, byName["data"].DependsOn)
	assert.Equal(t, []string{"data"}, byName["mid"].DependsOn)
	assert.Equal(t, []string{"mid"}, byName["api"].DependsOn)
}

func TestSynthesize_json(t *testing.T) {
	app, _, _ := buildTwoStackApp(t)
	asm, err := Synthesize(app, Options{Format: "json"})
	require.NoError(t, err)
	assert.Contains(t, asm.Files(), "api.template.json")

	_, err = Synthesize(app, Options{Format: "toml"})
	assert.Error(t, err)
}

func TestSynthesize_validationFailureAborts(t *testing.T) {
	app, data, _ := buildTwoStackApp(t)
	data.Node().AddValidation(func() error {
		return errors.New("table name is required")
	})

	_, err := Synthesize(app, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table name is required")
}

func TestSynthesize_producerFailureNamesStack(t *testing.T) {
	app := stack.NewApp(stack.AppProps{})
	s, _ := stack.NewStack(app, "broken", stack.StackProps{})
	res, err := s.AddResource("thing", "AWS::SNS::Topic", nil)
	require.NoError(t, err)
	res.SetProperty("TopicName", token.Defer(token.KindScalar, func() (any, error) {
		return nil, errors.New("not configured")
	}))

	_, err = Synthesize(app, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"broken"`)
	assert.Contains(t, err.Error(), "not configured")
	var perr *token.ProduceError
	assert.ErrorAs(t, err, &perr)
}

func TestSynthesize_freshContextPerPass(t *testing.T) {
	app := stack.NewApp(stack.AppProps{})
	s, _ := stack.NewStack(app, "counting", stack.StackProps{})
	res, _ := s.AddResource("thing", "AWS::SNS::Topic", nil)

	calls := 0
	res.SetProperty("TopicName", token.Defer(token.KindScalar, func() (any, error) {
		calls++
		return "topic", nil
	}))

	_, err := Synthesize(app, Options{})
	require.NoError(t, err)
	_, err = Synthesize(app, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "each pass owns a fresh resolution context")
}

func TestAssembly_write(t *testing.T) {
	app, _, _ := buildTwoStackApp(t)
	asm, err := Synthesize(app, Options{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "assembly")
	require.NoError(t, asm.Write(dir))

	for _, name := range asm.Files() {
		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		staged, _ := asm.File(name)
		assert.Equal(t, staged, content)
	}

	manifest, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, yaml.Unmarshal(manifest, &m))
	assert.Equal(t, asm.Manifest.ID, m.ID)
}
