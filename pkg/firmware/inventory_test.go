package firmware

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dataDir, _             = os.ReadFile("testdata/dir.txt")
	dataStartup, _         = os.ReadFile("testdata/startup.txt")
	dataStartupNoPatch, _  = os.ReadFile("testdata/startup-no-patch.txt")
	dataStartupNoSystem, _ = os.ReadFile("testdata/startup-no-system.txt")
	dataStartupStack, _    = os.ReadFile("testdata/startup-stack.txt")
)

func Test_testDataIsValid(t *testing.T) {
	for name, data := range map[string][]byte{
		"dataDir":             dataDir,
		"dataStartup":         dataStartup,
		"dataStartupNoPatch":  dataStartupNoPatch,
		"dataStartupNoSystem": dataStartupNoSystem,
		"dataStartupStack":    dataStartupStack,
	} {
		require.NotNil(t, data, name)
	}
}

func TestParseInventory(t *testing.T) {
	tests := map[string]struct {
		input string
		want  []string
	}{
		"directory listing": {
			input: string(dataDir),
			want: []string{
				"CE5855EI-V200R001SPH009.PAT",
				"CE5855EI-V200R002C50SPC800.cc",
				"CE5855EI-V200R002SPH006.PAT",
				"CE5855EI-V200R002SPH015.PAT",
				"CE5855EI-V200R002SPH017.PAT",
				"CE5855EI-V200R002SPH020.PAT",
				"CE5855EI-V200R002SPH026.PAT",
				"CE5855EI-V200R019C10SPC800.cc",
				"CE5855EI-V200R019SPH010.PAT",
				"CE5855EI-V200R019SPH015.PAT",
			},
		},
		"duplicates keep first position": {
			input: "b CE1-V100R001SPH002.PAT\na CE1-V100R001SPH001.PAT\nc CE1-V100R001SPH002.PAT\n",
			want:  []string{"CE1-V100R001SPH002.PAT", "CE1-V100R001SPH001.PAT"},
		},
		"no firmware files": {
			input: "  Idx  Attr     Size(Byte)  Date        Time       FileName\n    1  -rw-  1,024  Aug 28 2017 23:13:02   vrpcfg.zip\n",
		},
		"empty report": {},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			inv := ParseInventory(test.input)

			if len(test.want) == 0 {
				assert.Empty(t, inv)
				return
			}
			assert.Equal(t, test.want, inv.Names())
		})
	}
}

func TestParseInventory_Idempotent(t *testing.T) {
	assert.Equal(t, ParseInventory(string(dataDir)), ParseInventory(string(dataDir)))
}
