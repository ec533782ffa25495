package appdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackwright/stackwright/pkg/synth"
)

const sampleDefinition = `
context:
  account: "111111111111"
  region: us-east-1
stacks:
  - name: data
    description: data layer
    resources:
      - id: orders
        type: AWS::DynamoDB::Table
        properties:
          BillingMode: PAY_PER_REQUEST
  - name: api
    resources:
      - id: role
        type: AWS::IAM::Role
      - id: handler
        type: AWS::Lambda::Function
        dependsOn: [role]
        properties:
          Role:
            $ref: api/role#Arn
          Environment:
            Variables:
              TABLE_ARN:
                $ref: data/orders#Arn
              TABLE_NAME:
                $ref: data/orders
    outputs:
      handlerRole:
        value:
          $ref: api/role#Arn
        description: execution role
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)
	require.Len(t, def.Stacks, 2)
	assert.Equal(t, "data", def.Stacks[0].Name)
	assert.Equal(t, "111111111111", def.Context["account"])
}

func TestParse_rejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no stacks", yaml: `context: {}`},
		{name: "unnamed stack", yaml: "stacks:\n  - description: x"},
		{name: "duplicate stack", yaml: "stacks:\n  - name: a\n  - name: a"},
		{name: "resource missing type", yaml: "stacks:\n  - name: a\n    resources:\n      - id: r"},
		{
			name: "unknown resource key",
			yaml: "stacks:\n  - name: a\n    resources:\n      - id: r\n        type: T\n        propreties: {}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_decodesResourcesOnce(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)

	// Build consumes the resource definitions decoded during Parse; the raw
	// maps are not read a second time.
	def.Stacks[0].Resources[0]["propreties"] = map[string]any{}
	_, err = def.Build()
	assert.NoError(t, err)
}

func TestBuild_forwardReferences(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)

	app, err := def.Build()
	require.NoError(t, err)

	// The definition references api/role before it is usable and
	// data/orders across stacks; synthesis settles both.
	asm, err := synth.Synthesize(app, synth.Options{})
	require.NoError(t, err)

	apiTemplate, ok := asm.File("api.template.yaml")
	require.True(t, ok)
	assert.Contains(t, string(apiTemplate), "Fn::GetAtt")
	assert.Contains(t, string(apiTemplate), "Fn::ImportValue")

	require.Len(t, asm.Manifest.Stacks, 2)
	assert.Equal(t, "data", asm.Manifest.Stacks[0].Name)
	assert.Equal(t, []string{"data"}, asm.Manifest.Stacks[1].DependsOn)
}

func TestBuild_unknownReference(t *testing.T) {
	def, err := Parse([]byte(`
stacks:
  - name: api
    resources:
      - id: handler
        type: AWS::Lambda::Function
        properties:
          Role:
            $ref: api/missing#Arn
`))
	require.NoError(t, err)

	_, err = def.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api/missing")
}

func TestBuild_unknownDependsOn(t *testing.T) {
	def, err := Parse([]byte(`
stacks:
  - name: api
    resources:
      - id: handler
        type: AWS::Lambda::Function
        dependsOn: [missing]
`))
	require.NoError(t, err)

	_, err = def.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
