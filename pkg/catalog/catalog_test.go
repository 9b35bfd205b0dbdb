package catalog

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogtool/pkg/lookup"
)

const (
	testBundleID   = "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/a.bundle"
	testBundlePath = "fe_assets_unit/a.bundle"
	testPrefabID   = "Assets/Share/Addressables/Unit/A.prefab"
	testPrefabPath = "Unit/A"
	testPrefabHash = 1234
)

func testExtra() lookup.ExtraValue {
	return lookup.ExtraValue{
		KeyType:      7,
		AssemblyName: "Unity.ResourceManager",
		ClassName:    "UnityEngine.ResourceManagement.ResourceProviders.AssetBundleRequestOptions",
		JSON:         lookup.EncodeUTF16LE(`{"m_Hash":"abc","m_Crc":0}`),
	}
}

// newTestCatalog returns a catalog holding one bundle and one prefab that
// depends on it.
func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	return &Catalog{
		LocatorID: "AddressablesMainContentCatalog",
		InstanceProviderData: ProviderData{
			ID: "UnityEngine.ResourceManagement.ResourceProviders.InstanceProvider",
			ObjectType: ObjectType{
				AssemblyName: "Unity.ResourceManager",
				ClassName:    "UnityEngine.ResourceManagement.ResourceProviders.InstanceProvider",
			},
		},
		SceneProviderData: ProviderData{ID: "UnityEngine.ResourceManagement.ResourceProviders.SceneProvider"},
		ResourceProviderData: []ProviderData{
			{ID: "UnityEngine.ResourceManagement.ResourceProviders.AssetBundleProvider"},
		},
		ProviderIDs: []string{
			"UnityEngine.ResourceManagement.ResourceProviders.AssetBundleProvider",
			"UnityEngine.ResourceManagement.ResourceProviders.LegacyResourcesProvider",
			"UnityEngine.ResourceManagement.ResourceProviders.BundledAssetProvider",
		},
		InternalIDs: []string{testBundleID, testPrefabID},
		KeyData: lookup.KeyData{Keys: []lookup.Key{
			lookup.StringKey(testBundlePath),
			lookup.StringKey(testPrefabPath),
			lookup.HashKey(testPrefabHash),
		}},
		BucketData: lookup.BucketData{Buckets: []lookup.Bucket{
			{KeyOffset: 4, Entries: []lookup.EntryID{0}},
			{KeyOffset: 4 + 5 + uint32(len(testBundlePath)), Entries: []lookup.EntryID{1}},
			{KeyOffset: 4 + 5 + uint32(len(testBundlePath)) + 5 + uint32(len(testPrefabPath)), Entries: []lookup.EntryID{0}},
		}},
		EntryData: lookup.EntryData{Entries: []lookup.Entry{
			{InternalID: 0, ProviderIndex: 0, DependencyKey: lookup.NoKey, DataIndex: 0, PrimaryKey: 0},
			{InternalID: 1, ProviderIndex: 2, DependencyKey: 2, DependencyHash: testPrefabHash, DataIndex: lookup.NoExtra, PrimaryKey: 1, ResourceType: 4},
		}},
		ExtraData:          lookup.ExtraData{Values: []lookup.ExtraValue{testExtra()}},
		ResourceTypes:      []ObjectType{{AssemblyName: "UnityEngine.CoreModule", ClassName: "UnityEngine.GameObject"}},
		InternalIDPrefixes: []string{},
	}
}

func TestParseRoundTrip(t *testing.T) {
	c := newTestCatalog(t)

	data, err := c.Bytes()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"m_LocatorId":"AddressablesMainContentCatalog"`))
	assert.False(t, strings.HasSuffix(string(data), "\n"))
	assert.Contains(t, string(data), `"m_InternalIds":["{UnityEngine.AddressableAssets.Addressables.RuntimePath}`)

	parsed, err := Parse(data)
	require.NoError(t, err)
	if diff := cmp.Diff(c.InternalIDs, parsed.InternalIDs); diff != "" {
		t.Fatalf("internal ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, c.KeyData, parsed.KeyData)
	assert.Equal(t, c.BucketData, parsed.BucketData)
	assert.Equal(t, c.EntryData, parsed.EntryData)
	assert.Equal(t, c.ExtraData, parsed.ExtraData)

	again, err := parsed.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestParseWithBOM(t *testing.T) {
	data, err := newTestCatalog(t).Bytes()
	require.NoError(t, err)

	c, err := ParseString("\xEF\xBB\xBF" + string(data))
	require.NoError(t, err)
	assert.Len(t, c.InternalIDs, 2)
}

func TestParseErrors(t *testing.T) {
	_, err := ParseString(`{"m_KeyDataString": "%%%"}`)
	assert.Error(t, err)

	_, err = ParseString(`{"m_EntryDataString": "AQAAAA=="}`)
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLookups(t *testing.T) {
	c := newTestCatalog(t)

	iid, ok := c.InternalIDIndex(testPrefabID)
	require.True(t, ok)
	assert.Equal(t, lookup.InternalID(1), iid)

	_, ok = c.InternalIDIndex("Assets/Missing.prefab")
	assert.False(t, ok)

	s, ok := c.InternalIDAt(0)
	require.True(t, ok)
	assert.Equal(t, testBundleID, s)
	_, ok = c.InternalIDAt(9)
	assert.False(t, ok)

	assert.Equal(t, []string{testBundleID}, c.SearchInternalIDs("a.bundle"))
	assert.Len(t, c.SearchInternalIDs("A"), 2)
	assert.Empty(t, c.SearchInternalIDs("nothing"))

	entry, ok := c.EntryByInternalID(iid)
	require.True(t, ok)
	assert.Equal(t, int32(testPrefabHash), entry.DependencyHash)

	eid, ok := c.EntryIDByInternalID(iid)
	require.True(t, ok)
	assert.Equal(t, lookup.EntryID(1), eid)

	_, ok = c.Key(lookup.NoKey)
	assert.False(t, ok)
	_, ok = c.Bucket(99)
	assert.False(t, ok)
	_, ok = c.Entry(99)
	assert.False(t, ok)

	extra, ok := c.ExtraAt(0)
	require.True(t, ok)
	assert.Equal(t, `{"m_Hash":"abc","m_Crc":0}`, extra.Text())
	_, ok = c.Extra(1)
	assert.False(t, ok)
}

func TestDependencies(t *testing.T) {
	c := newTestCatalog(t)

	prefab, _ := c.Entry(1)
	deps, err := c.Dependencies(prefab)
	require.NoError(t, err)
	assert.Equal(t, []lookup.EntryID{0}, deps)

	ids, err := c.DependencyIDs(prefab)
	require.NoError(t, err)
	assert.Equal(t, []string{testBundleID}, ids)

	bundle, _ := c.Entry(0)
	_, err = c.Dependencies(bundle)
	assert.ErrorIs(t, err, ErrNoDependencies)
}

func TestAddBundle(t *testing.T) {
	c := newTestCatalog(t)
	const id = "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/b.bundle"

	wantKeyOffset := c.KeyData.Offset(len(c.KeyData.Keys))
	assert.Equal(t, wantKeyOffset, c.NextKeyOffset())
	wantExtraOffset := c.NextExtraOffset()

	require.NoError(t, c.AddBundle(id, "b.bundle", testExtra()))

	iid, ok := c.InternalIDIndex(id)
	require.True(t, ok)
	entry, ok := c.EntryByInternalID(iid)
	require.True(t, ok)

	assert.Equal(t, lookup.Entry{
		InternalID:    iid,
		DependencyKey: lookup.NoKey,
		DataIndex:     lookup.ExtraID(wantExtraOffset),
		PrimaryKey:    3,
	}, *entry)

	bucket, ok := c.Bucket(3)
	require.True(t, ok)
	assert.Equal(t, wantKeyOffset, bucket.KeyOffset)
	assert.Equal(t, []lookup.EntryID{2}, bucket.Entries)

	extra, ok := c.ExtraAt(entry.DataIndex)
	require.True(t, ok)
	assert.Equal(t, testExtra(), *extra)

	err := c.AddBundle(id, "b.bundle", testExtra())
	assert.ErrorIs(t, err, ErrDuplicateInternalID)
}

func TestAddPrefab(t *testing.T) {
	c := newTestCatalog(t)
	c.SetRand(rand.New(rand.NewPCG(1, 2)))
	const id = "Assets/Share/Addressables/Unit/B.prefab"

	require.NoError(t, c.AddPrefab(id, "Unit/B", []string{testBundleID}))

	iid, _ := c.InternalIDIndex(id)
	entry, ok := c.EntryByInternalID(iid)
	require.True(t, ok)

	assert.Equal(t, uint32(prefabProviderIndex), entry.ProviderIndex)
	assert.Equal(t, int32(prefabResourceType), entry.ResourceType)
	assert.Equal(t, lookup.NoExtra, entry.DataIndex)
	assert.NotZero(t, entry.DependencyHash)
	assert.NotEqual(t, int32(testPrefabHash), entry.DependencyHash)

	depKey, ok := c.Key(entry.DependencyKey)
	require.True(t, ok)
	hash, ok := depKey.Hash()
	require.True(t, ok)
	assert.Equal(t, entry.DependencyHash, hash)

	ids, err := c.DependencyIDs(entry)
	require.NoError(t, err)
	assert.Equal(t, []string{testBundleID}, ids)

	primary, _ := c.Bucket(entry.PrimaryKey)
	assert.Equal(t, []lookup.EntryID{2}, primary.Entries)

	// Key offsets stay contiguous
	for i := range c.KeyData.Keys {
		assert.Equal(t, c.KeyData.Offset(i), c.BucketData.Buckets[i].KeyOffset, "bucket %d", i)
	}
}

func TestAddPrefabMissingDependencyLeavesCatalog(t *testing.T) {
	c := newTestCatalog(t)
	before, err := c.Bytes()
	require.NoError(t, err)

	err = c.AddPrefab("Assets/C.prefab", "C", []string{testBundleID, "missing.bundle"})
	assert.ErrorIs(t, err, ErrMissingInternalID)

	err = c.AddPrefab(testPrefabID, "A", nil)
	assert.ErrorIs(t, err, ErrDuplicateInternalID)

	after, err := c.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestAddRejectsOutOfSyncTables(t *testing.T) {
	c := newTestCatalog(t)
	c.BucketData.Buckets = c.BucketData.Buckets[:2]

	err := c.AddBundle("x", "x", testExtra())
	assert.ErrorIs(t, err, ErrTablesOutOfSync)
}

func TestUniqueHash(t *testing.T) {
	c := newTestCatalog(t)
	c.SetRand(rand.New(rand.NewPCG(7, 7)))

	seen := map[int32]bool{}
	for i := 0; i < 100; i++ {
		h := c.UniqueHash()
		assert.NotZero(t, h)
		assert.NotEqual(t, int32(testPrefabHash), h)
		seen[h] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestTemplateExtra(t *testing.T) {
	c := newTestCatalog(t)

	v, err := c.TemplateExtra(-1)
	require.NoError(t, err)
	assert.Equal(t, testExtra(), v)

	v, err = c.TemplateExtra(0)
	require.NoError(t, err)
	assert.Equal(t, testExtra(), v)

	_, err = c.TemplateExtra(200)
	assert.ErrorIs(t, err, ErrMissingExtraData)

	c.ExtraData.Values = nil
	_, err = c.TemplateExtra(-1)
	assert.ErrorIs(t, err, ErrMissingExtraData)
}

func TestDump(t *testing.T) {
	c := newTestCatalog(t)

	t.Run("bundle", func(t *testing.T) {
		got, err := c.Dump(0)
		require.NoError(t, err)
		want := &Entries{
			Bundles: []BundleEntry{{InternalID: testBundleID, InternalPath: testBundlePath}},
			Prefabs: []PrefabEntry{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("dump mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("prefab", func(t *testing.T) {
		got, err := c.Dump(1)
		require.NoError(t, err)
		want := &Entries{
			Bundles: []BundleEntry{{InternalID: testBundleID, InternalPath: testBundlePath}},
			Prefabs: []PrefabEntry{{
				InternalID:   testPrefabID,
				InternalPath: testPrefabPath,
				Dependencies: []string{testBundleID},
			}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("dump mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hash primary key", func(t *testing.T) {
		c := newTestCatalog(t)
		c.EntryData.Entries[0].PrimaryKey = 2
		_, err := c.Dump(0)
		assert.ErrorIs(t, err, ErrHashPrimaryKey)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := c.Dump(42)
		assert.ErrorIs(t, err, ErrMissingInternalID)
	})
}

func TestApplyThenDump(t *testing.T) {
	c := newTestCatalog(t)
	entries := &Entries{
		Bundles: []BundleEntry{{InternalID: "b.bundle", InternalPath: "fe/b.bundle"}},
		Prefabs: []PrefabEntry{{
			InternalID:   "Assets/B.prefab",
			InternalPath: "Unit/B",
			Dependencies: []string{"b.bundle", testBundleID},
		}},
	}

	require.NoError(t, c.Apply(entries, testExtra()))

	iid, ok := c.InternalIDIndex("Assets/B.prefab")
	require.True(t, ok)
	got, err := c.Dump(iid)
	require.NoError(t, err)

	assert.Equal(t, []BundleEntry{{InternalID: "b.bundle", InternalPath: "fe/b.bundle"}}, got.Bundles)
	assert.Equal(t, entries.Prefabs, got.Prefabs)

	// The edited catalog survives a JSON round trip
	data, err := c.Bytes()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c.Stats(), parsed.Stats())

	err = c.Apply(entries, testExtra())
	assert.ErrorIs(t, err, ErrDuplicateInternalID)
}

func TestApplyFailureLeavesCatalog(t *testing.T) {
	c := newTestCatalog(t)
	before, err := c.Bytes()
	require.NoError(t, err)

	for name, entries := range map[string]*Entries{
		"second bundle duplicate": {
			Bundles: []BundleEntry{
				{InternalID: "b.bundle", InternalPath: "fe/b.bundle"},
				{InternalID: testBundleID, InternalPath: "fe/a.bundle"},
			},
		},
		"prefab missing dependency": {
			Bundles: []BundleEntry{{InternalID: "b.bundle", InternalPath: "fe/b.bundle"}},
			Prefabs: []PrefabEntry{
				{InternalID: "Assets/B.prefab", InternalPath: "Unit/B", Dependencies: []string{"b.bundle"}},
				{InternalID: "Assets/C.prefab", InternalPath: "Unit/C", Dependencies: []string{"missing.bundle"}},
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, c.Apply(entries, testExtra()))

			after, err := c.Bytes()
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
			_, ok := c.InternalIDIndex("b.bundle")
			assert.False(t, ok)
		})
	}
}

func TestBytesWritesEmptyArrays(t *testing.T) {
	c, err := ParseString(`{"m_LocatorId":"AddressablesMainContentCatalog"}`)
	require.NoError(t, err)

	data, err := c.Bytes()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
	for _, field := range []string{"m_ResourceProviderData", "m_ProviderIds", "m_InternalIds", "m_resourceTypes", "m_InternalIdPrefixes"} {
		assert.Contains(t, string(data), `"`+field+`":[]`)
	}
	assert.Nil(t, c.InternalIDPrefixes)
}

func TestStats(t *testing.T) {
	s := newTestCatalog(t).Stats()
	assert.Equal(t, Stats{
		Providers:   3,
		InternalIDs: 2,
		Keys:        3,
		Buckets:     3,
		Entries:     2,
		Extras:      1,
		ExtraSize:   testExtra().Size(),
	}, s)
}
