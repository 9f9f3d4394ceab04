package csdl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CaliLuke/go-odata/edm"
)

const salesMetadata = `<?xml version="1.0" encoding="utf-8"?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:DataServices>
    <Schema Namespace="Contoso.Sales" Alias="S" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EntityType Name="Party" Abstract="true">
        <Key><PropertyRef Name="ID"/></Key>
        <Property Name="ID" Type="Edm.Int32" Nullable="false"/>
      </EntityType>
      <EntityType Name="Customer" BaseType="S.Party">
        <Property Name="Name" Type="Edm.String" MaxLength="40" Unicode="false"/>
        <Property Name="Notes" Type="Edm.String" MaxLength="max"/>
        <Property Name="Balance" Type="Edm.Decimal" Precision="10" Scale="variable"/>
        <Property Name="Tags" Type="Collection(Edm.String)"/>
        <Property Name="Home" Type="S.Address"/>
        <Property Name="Location" Type="Edm.GeographyPoint" SRID="4326"/>
        <NavigationProperty Name="Orders" Type="Collection(S.Order)" Partner="Customer"/>
      </EntityType>
      <EntityType Name="Order">
        <Key><PropertyRef Name="OrderID"/></Key>
        <Property Name="OrderID" Type="Edm.Int32" Nullable="false"/>
        <Property Name="CustID" Type="Edm.Int32"/>
        <NavigationProperty Name="Customer" Type="S.Customer" Nullable="false" Partner="Orders">
          <ReferentialConstraint Property="CustID" ReferencedProperty="ID"/>
        </NavigationProperty>
      </EntityType>
      <ComplexType Name="Address">
        <Property Name="City" Type="Edm.String"/>
        <Property Name="Zip" Type="Edm.String" MaxLength="10"/>
      </ComplexType>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`

func loadSales(t *testing.T) *edm.SchemaModel {
	t.Helper()
	m, err := Load(strings.NewReader(salesMetadata))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoad_EntityTypes(t *testing.T) {
	m := loadSales(t)
	if got := m.NumEntityTypes(); got != 3 {
		t.Errorf("NumEntityTypes: got %d, want 3", got)
	}

	cust, ok := m.EntityType(edm.NewFQN("Contoso.Sales.Customer"))
	if !ok {
		t.Fatal("Customer not found")
	}
	if cust.BaseType == nil || cust.BaseType.String() != "Contoso.Sales.Party" {
		t.Errorf("BaseType: got %v", cust.BaseType)
	}
	if len(cust.Key) != 1 || cust.Key[0] != "ID" {
		t.Errorf("inherited Key: got %v", cust.Key)
	}
	id, ok := cust.Property("ID")
	if !ok || id.Facets.IsNullable() {
		t.Errorf("inherited ID: got %+v, %v", id, ok)
	}

	party, _ := m.EntityType(edm.NewFQN("Contoso.Sales.Party"))
	if party == nil || !party.Abstract {
		t.Error("Party: expected abstract type")
	}
}

func TestLoad_Facets(t *testing.T) {
	m := loadSales(t)
	cust, _ := m.EntityType(edm.NewFQN("Contoso.Sales.Customer"))

	name, _ := cust.Property("Name")
	if name.Facets.MaxLength == nil || *name.Facets.MaxLength != 40 {
		t.Errorf("Name.MaxLength: got %v", name.Facets.MaxLength)
	}
	if name.Facets.Unicode == nil || *name.Facets.Unicode {
		t.Errorf("Name.Unicode: got %v", name.Facets.Unicode)
	}
	if !name.Facets.IsNullable() {
		t.Error("Name: expected nullable")
	}

	notes, _ := cust.Property("Notes")
	if notes.Facets.MaxLength != nil {
		t.Errorf("Notes.MaxLength: got %d, want unset", *notes.Facets.MaxLength)
	}

	bal, _ := cust.Property("Balance")
	if bal.Facets.Precision == nil || *bal.Facets.Precision != 10 {
		t.Errorf("Balance.Precision: got %v", bal.Facets.Precision)
	}
	if bal.Facets.Scale != nil {
		t.Errorf("Balance.Scale: got %d, want unset", *bal.Facets.Scale)
	}

	loc, _ := cust.Property("Location")
	if loc.Facets.SRID == nil || *loc.Facets.SRID != 4326 {
		t.Errorf("Location.SRID: got %v", loc.Facets.SRID)
	}
}

func TestLoad_AliasResolution(t *testing.T) {
	m := loadSales(t)
	cust, _ := m.EntityType(edm.NewFQN("Contoso.Sales.Customer"))

	tests := []struct {
		prop string
		want string
	}{
		{"Home", "Contoso.Sales.Address"},
		{"Tags", "Collection(Edm.String)"},
		{"Name", "Edm.String"},
	}
	for _, tt := range tests {
		p, ok := cust.Property(tt.prop)
		if !ok {
			t.Errorf("%s: not found", tt.prop)
			continue
		}
		if p.Type != tt.want {
			t.Errorf("%s.Type: got %q, want %q", tt.prop, p.Type, tt.want)
		}
	}

	orders, ok := cust.NavigationProperty("Orders")
	if !ok || orders.Type != "Collection(Contoso.Sales.Order)" {
		t.Errorf("Orders: got %+v, %v", orders, ok)
	}

	addr, ok := m.ComplexType(edm.NewFQN("Contoso.Sales.Address"))
	if !ok || len(addr.Properties) != 2 {
		t.Fatalf("Address: got %+v, %v", addr, ok)
	}
}

func TestLoad_Navigation(t *testing.T) {
	m := loadSales(t)
	order, _ := m.EntityType(edm.NewFQN("Contoso.Sales.Order"))
	np, ok := order.NavigationProperty("Customer")
	if !ok {
		t.Fatal("Customer navigation not found")
	}
	r, err := edm.NewNavigationResolver(np)
	if err != nil {
		t.Fatalf("NewNavigationResolver: %v", err)
	}
	if r.IsCollection() {
		t.Error("IsCollection: got true")
	}
	if n := r.IsNullable(); n == nil || *n {
		t.Errorf("IsNullable: got %v", n)
	}
	if p, ok := r.PartnerName(); !ok || p != "Orders" {
		t.Errorf("PartnerName: got %q, %v", p, ok)
	}
	if p, ok := r.ReferencingPropertyFor("ID"); !ok || p != "CustID" {
		t.Errorf("ReferencingPropertyFor(ID): got %q, %v", p, ok)
	}
	target, ok := r.Target(m)
	if !ok || target.Name.Name != "Customer" {
		t.Errorf("Target: got %v, %v", target, ok)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad xml", `<edmx:Edmx`},
		{"no namespace", `<Edmx><DataServices><Schema/></DataServices></Edmx>`},
		{"bad facet", `<Edmx><DataServices><Schema Namespace="N"><ComplexType Name="C">` +
			`<Property Name="P" Type="Edm.String" MaxLength="ten"/></ComplexType></Schema></DataServices></Edmx>`},
	}
	for _, tt := range tests {
		if _, err := Load(strings.NewReader(tt.doc)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.xml")
	if err := os.WriteFile(path, []byte(salesMetadata), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, ok := m.ComplexType(edm.NewFQN("Contoso.Sales.Address")); !ok {
		t.Error("Address not found")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestIntFacet(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"", 0, false},
		{"max", 0, false},
		{"Variable", 0, false},
		{" 12 ", 12, true},
	}
	for _, tt := range tests {
		n, ok, err := intFacet(tt.in)
		if err != nil || n != tt.want || ok != tt.wantOK {
			t.Errorf("intFacet(%q): got %d, %v, %v", tt.in, n, ok, err)
		}
	}
}
