package graphexport

var indexes = []string{
	"CREATE INDEX java_class_name IF NOT EXISTS FOR (n:JavaClass) ON (n.name)",
	"CREATE INDEX java_package_name IF NOT EXISTS FOR (n:JavaPackage) ON (n.name)",
}

const mergePackages = `UNWIND $batch AS row
 MERGE (p:JavaPackage {name: row.name})
 SET p.last_run = row.run`

const mergePackageNesting = `UNWIND $batch AS row
 MATCH (parent:JavaPackage {name: row.parent}), (child:JavaPackage {name: row.child})
 MERGE (parent)-[:CONTAINS]->(child)`

const mergeClasses = `UNWIND $batch AS row
 MERGE (c:JavaClass {name: row.name})
 SET c.simple_name = row.simple_name, c.package = row.package, c.stub = row.stub,
     c.interface = row.interface, c.modifiers = row.modifiers, c.uri = row.uri,
     c.source_file = row.source_file, c.last_run = row.run
 WITH c, row
 OPTIONAL MATCH (p:JavaPackage {name: row.package})
 FOREACH (_ IN CASE WHEN p IS NULL OR row.stub THEN [] ELSE [1] END |
   MERGE (c)-[:IN_PACKAGE]->(p))`

const clearOutgoingEdges = `UNWIND $batch AS row
 MATCH (:JavaClass {name: row.name})-[r:EXTENDS|IMPLEMENTS|DEPENDS_ON]->()
 DELETE r`

const mergeExtends = `UNWIND $batch AS row
 MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
 MERGE (a)-[:EXTENDS]->(b)`

const mergeImplements = `UNWIND $batch AS row
 MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
 MERGE (a)-[:IMPLEMENTS]->(b)`

const mergeDependencies = `UNWIND $batch AS row
 MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
 MERGE (a)-[:DEPENDS_ON]->(b)`

var pruneStale = []string{
	"MATCH (c:JavaClass) WHERE c.last_run <> $run DETACH DELETE c",
	"MATCH (p:JavaPackage) WHERE p.last_run <> $run DETACH DELETE p",
}
